package api

import (
	"context"

	"todolist/internal/domain"
	"todolist/internal/metrics"
	"todolist/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const TodoServiceName = "todolist.v1.TodoService"

// TodoServiceServer mirrors the HTTP API over gRPC using well-known types:
// a todo travels as a Struct {"id": number, "title": string}.
type TodoServiceServer interface {
	ListTodos(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	CreateTodo(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteTodo(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

type TodoService struct {
	store domain.TodoStore
}

func NewTodoService(store domain.TodoStore) *TodoService {
	return &TodoService{store: store}
}

func (s *TodoService) ListTodos(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	todos, err := s.store.ListTodos(ctx)
	if err != nil {
		return nil, storageError(ctx, "list", err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(todos))}
	for _, t := range todos {
		out.Values = append(out.Values, structpb.NewStructValue(todoStruct(t)))
	}
	return out, nil
}

func (s *TodoService) CreateTodo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	todo, err := s.store.CreateTodo(ctx, req.GetValue())
	if err != nil {
		return nil, storageError(ctx, "create", err)
	}
	metrics.IncMutation("create")
	return todoStruct(*todo), nil
}

func (s *TodoService) DeleteTodo(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if err := s.store.DeleteTodo(ctx, req.GetValue()); err != nil {
		return nil, storageError(ctx, "delete", err)
	}
	metrics.IncMutation("delete")
	return &emptypb.Empty{}, nil
}

func storageError(ctx context.Context, op string, err error) error {
	metrics.IncStorageError(op)
	zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Msg("storage call failed")
	return status.Error(codes.Internal, models.MsgInternalError)
}

func todoStruct(t models.Todo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":    structpb.NewNumberValue(float64(t.ID)),
		"title": structpb.NewStringValue(t.Title),
	}}
}

// TodoFromStruct converts a Struct produced by the service back to a Todo.
func TodoFromStruct(s *structpb.Struct) models.Todo {
	return models.Todo{
		ID:    int64(s.GetFields()["id"].GetNumberValue()),
		Title: s.GetFields()["title"].GetStringValue(),
	}
}

func RegisterTodoServiceServer(s grpc.ServiceRegistrar, srv TodoServiceServer) {
	s.RegisterService(&TodoServiceDesc, srv)
}

var TodoServiceDesc = grpc.ServiceDesc{
	ServiceName: TodoServiceName,
	HandlerType: (*TodoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTodos", Handler: listTodosHandler},
		{MethodName: "CreateTodo", Handler: createTodoHandler},
		{MethodName: "DeleteTodo", Handler: deleteTodoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "todolist/v1/todo.proto",
}

func listTodosHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).ListTodos(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + TodoServiceName + "/ListTodos"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).ListTodos(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func createTodoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).CreateTodo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + TodoServiceName + "/CreateTodo"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).CreateTodo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteTodoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).DeleteTodo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + TodoServiceName + "/DeleteTodo"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).DeleteTodo(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"todolist/internal/config"
	"todolist/internal/domain"
	"todolist/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	listMethod   = "/" + TodoServiceName + "/ListTodos"
	createMethod = "/" + TodoServiceName + "/CreateTodo"
	deleteMethod = "/" + TodoServiceName + "/DeleteTodo"
)

func newBufconnClient(t *testing.T, store domain.TodoStore) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	logger := zerolog.New(io.Discard)
	srv := NewGRPCServerWithListener(&config.APIConfig{}, store, lis, &logger)

	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func grpcCreate(t *testing.T, conn *grpc.ClientConn, title string) models.Todo {
	t.Helper()
	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(context.Background(), createMethod, wrapperspb.String(title), out))
	return TodoFromStruct(out)
}

func grpcList(t *testing.T, conn *grpc.ClientConn) []models.Todo {
	t.Helper()
	out := new(structpb.ListValue)
	require.NoError(t, conn.Invoke(context.Background(), listMethod, &emptypb.Empty{}, out))
	todos := make([]models.Todo, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		todos = append(todos, TodoFromStruct(v.GetStructValue()))
	}
	return todos
}

func TestTodoService_RoundTrip(t *testing.T) {
	conn := newBufconnClient(t, newTestDB(t))
	ctx := context.Background()

	created := grpcCreate(t, conn, "Buy milk")
	assert.Positive(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, []models.Todo{created}, grpcList(t, conn))

	require.NoError(t, conn.Invoke(ctx, deleteMethod, wrapperspb.Int64(created.ID), new(emptypb.Empty)))
	assert.Empty(t, grpcList(t, conn))

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.NoError(t, conn.Invoke(ctx, deleteMethod, wrapperspb.Int64(999999), new(emptypb.Empty)))
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		err := conn.Invoke(ctx, createMethod, wrapperspb.String(""), new(structpb.Struct))
		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Equal(t, models.MsgInternalError, status.Convert(err).Message())
		assert.Empty(t, grpcList(t, conn))
	})
}

func TestTodoService_Ordering(t *testing.T) {
	conn := newBufconnClient(t, newTestDB(t))

	a := grpcCreate(t, conn, "A")
	b := grpcCreate(t, conn, "B")
	c := grpcCreate(t, conn, "C")
	require.NoError(t, conn.Invoke(context.Background(), deleteMethod, wrapperspb.Int64(b.ID), new(emptypb.Empty)))
	d := grpcCreate(t, conn, "D")

	assert.Equal(t, []models.Todo{a, c, d}, grpcList(t, conn))
}

func TestTodoService_StorageFailure(t *testing.T) {
	store := new(mockStore)
	store.On("ListTodos", mock.Anything).Return(nil, errors.New("connection reset"))
	conn := newBufconnClient(t, store)

	err := conn.Invoke(context.Background(), listMethod, &emptypb.Empty{}, new(structpb.ListValue))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestTodoService_PanicRecovered(t *testing.T) {
	store := new(mockStore)
	store.On("DeleteTodo", mock.Anything, int64(1)).Run(func(mock.Arguments) { panic("boom") })
	conn := newBufconnClient(t, store)

	err := conn.Invoke(context.Background(), deleteMethod, wrapperspb.Int64(1), new(emptypb.Empty))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPCHealth(t *testing.T) {
	conn := newBufconnClient(t, newTestDB(t))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: TodoServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCRequestIDHeader(t *testing.T) {
	conn := newBufconnClient(t, newTestDB(t))

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDMetadataKey, "req-42")
	var header metadata.MD
	err := conn.Invoke(ctx, listMethod, &emptypb.Empty{}, new(structpb.ListValue), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(requestIDMetadataKey))
}

func TestGRPCServer_New(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cfg := config.APIConfig{GRPC: config.APIGRPCConfig{Port: 0, Reflection: true}}

	s, err := NewGRPCServer(&cfg, newTestDB(t), &logger)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Addr())

	go func() { _ = s.Serve() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Shutdown(ctx)
}

func TestRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, " abc "))
	assert.Equal(t, "abc", requestIDFromMetadata(ctx))
	assert.Len(t, requestIDFromMetadata(context.Background()), 36)
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "test"}
	handler := func(ctx context.Context, req any) (any, error) {
		panic("boom")
	}

	resp, err := recoveryUnaryInterceptor()(context.Background(), "request", info, handler)
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestRequestIDInterceptor_LoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "req-7"))

	handler := func(ctx context.Context, req any) (any, error) {
		zerolog.Ctx(ctx).Info().Msg("inside")
		return "ok", nil
	}

	// SetHeader fails outside a real stream; the handler still runs.
	resp, err := requestIDUnaryInterceptor(&logger)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "test"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), `"component":"grpc"`)
}

package models

// Todo is the single persisted entity. ID is assigned by the storage layer.
type Todo struct {
	ID    int64  `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// CreateTodoRequest is the body of POST /todos. Title is a pointer so an
// omitted field can be told apart from an empty string.
type CreateTodoRequest struct {
	Title *string `json:"title"`
}

// TitleValue returns the requested title or "" when it was omitted.
func (r CreateTodoRequest) TitleValue() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Aidin1998/todos/api/responses"
	"github.com/Aidin1998/todos/common/apiutil"
	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createTodoRequest struct {
	Text string `json:"text" validate:"required"`
}

// updateTodoRequest is the update allow-list. Completed stays raw so that
// only a JSON true marks the todo complete.
type updateTodoRequest struct {
	Text      *string         `json:"text"`
	Completed json.RawMessage `json:"completed"`
}

func (r updateTodoRequest) patch() todos.Patch {
	p := todos.Patch{Text: r.Text}
	if raw := bytes.TrimSpace(r.Completed); len(raw) > 0 {
		completed := bytes.Equal(raw, []byte("true"))
		p.Completed = &completed
	}
	return p
}

var errInvalidBody = errors.Invalid.Explain("request body must be a JSON object")

// createTodo handles POST /todos
func (s *Server) createTodo(c *gin.Context) {
	var req createTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiutil.WriteError(c, http.StatusBadRequest, errInvalidBody.Wrap(err))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Validate(req); err != nil {
		apiutil.WriteError(c, http.StatusBadRequest, err)
		return
	}

	todo, err := s.todos.Create(c.Request.Context(), req.Text)
	if err != nil {
		s.writeError(c, err, true)
		return
	}
	responses.Created(c, todo)
}

// listTodos handles GET /todos
func (s *Server) listTodos(c *gin.Context) {
	list, err := s.todos.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err, true)
		return
	}
	responses.Todos(c, list)
}

// getTodo handles GET /todos/:id
func (s *Server) getTodo(c *gin.Context) {
	id, err := todos.ParseID(c.Param("id"))
	if err != nil {
		responses.Empty(c, http.StatusNotFound)
		return
	}
	todo, err := s.todos.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err, true)
		return
	}
	responses.Todo(c, todo)
}

// deleteTodo handles DELETE /todos/:id
func (s *Server) deleteTodo(c *gin.Context) {
	id, err := todos.ParseID(c.Param("id"))
	if err != nil {
		responses.Empty(c, http.StatusNotFound)
		return
	}
	todo, err := s.todos.Remove(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err, false)
		return
	}
	responses.Todo(c, todo)
}

// updateTodo handles PATCH /todos/:id
func (s *Server) updateTodo(c *gin.Context) {
	id, err := todos.ParseID(c.Param("id"))
	if err != nil {
		responses.Empty(c, http.StatusNotFound)
		return
	}
	var req updateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apiutil.WriteError(c, http.StatusBadRequest, errInvalidBody.Wrap(err))
		return
	}
	todo, err := s.todos.Update(c.Request.Context(), id, req.patch())
	if err != nil {
		s.writeError(c, err, false)
		return
	}
	responses.Todo(c, todo)
}

// writeError maps service errors to statuses: not found is 404 with no body,
// validation failures are 400 with details, and storage failures are 400 with
// the error payload only when withBody is set.
func (s *Server) writeError(c *gin.Context, err error, withBody bool) {
	switch {
	case errors.Is(err, errors.NotFound):
		responses.Empty(c, http.StatusNotFound)
	case errors.Is(err, errors.Invalid):
		apiutil.WriteError(c, http.StatusBadRequest, err)
	default:
		s.logger.Error("storage error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", apiutil.GetRequestID(c)),
			zap.Error(err))
		if withBody {
			apiutil.WriteError(c, http.StatusBadRequest, err)
			return
		}
		responses.Empty(c, http.StatusBadRequest)
	}
}

// Package responses writes the todo API response shapes.
package responses

import (
	"net/http"

	"github.com/Aidin1998/todos/internal/todos"
	"github.com/gin-gonic/gin"
)

// TodoEnvelope wraps a single todo under "todo".
type TodoEnvelope struct {
	Todo *todos.Todo `json:"todo"`
}

// TodoList wraps every todo under "todos".
type TodoList struct {
	Todos []*todos.Todo `json:"todos"`
}

// Created sends the bare todo fields with 200, as the create endpoint does.
func Created(c *gin.Context, todo *todos.Todo) {
	c.JSON(http.StatusOK, todo)
}

// Todo sends {"todo": {...}}.
func Todo(c *gin.Context, todo *todos.Todo) {
	c.JSON(http.StatusOK, TodoEnvelope{Todo: todo})
}

// Todos sends {"todos": [...]}; a nil list is sent as an empty array.
func Todos(c *gin.Context, list []*todos.Todo) {
	if list == nil {
		list = []*todos.Todo{}
	}
	c.JSON(http.StatusOK, TodoList{Todos: list})
}

// Empty aborts with status and no body.
func Empty(c *gin.Context, status int) {
	c.AbortWithStatus(status)
}

package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NotFound.Explain("todo %s not found", "abc")

	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Invalid))
	assert.Equal(t, "[NotFound] todo abc not found", err.Error())
	assert.Empty(t, NotFound.Message, "Explain must not mutate the sentinel")
}

func TestError_WrapKeepsCause(t *testing.T) {
	err := Unavailable.Explain("store down").Wrap(io.ErrUnexpectedEOF)

	assert.True(t, Is(err, Unavailable))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, io.ErrUnexpectedEOF, err.Unwrap())
	assert.Contains(t, err.Error(), io.ErrUnexpectedEOF.Error())
}

func TestError_WithFieldCopies(t *testing.T) {
	base := Invalid.Explain("validation error").WithField("required", "text", "")
	a := base.WithField("max", "text", "too long")
	b := base.WithField("oneof", "completed", "")

	assert.Len(t, base.Fields, 1)
	assert.Equal(t, []FieldError{
		{Kind: "required", Field: "text"},
		{Kind: "max", Field: "text", Message: "too long"},
	}, a.Fields)
	assert.Equal(t, "completed", b.Fields[1].Field)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflict.Wrap(io.EOF)))
	assert.Equal(t, KindNotFound, KindOf(Join(io.EOF, NotFound)))
	assert.Equal(t, "", KindOf(io.EOF))
}

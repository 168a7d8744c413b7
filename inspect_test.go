package errplain

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimCause(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		msg      string
		cause    interface{}
		expected string
	}{
		{"wrapped: boom", cause, "wrapped"},
		{"boom", cause, ""},
		{"wrapped", cause, "wrapped"},
		{"wrapped:boom", cause, "wrapped:boom"},
		{"wrapped: boom", nil, "wrapped: boom"},
		{"wrapped: boom", "boom", "wrapped: boom"},
		{"a\nb", []error{errors.New("a"), errors.New("b")}, ""},
		{"a; b", []error{errors.New("a"), errors.New("b")}, "a; b"},
		{"wrapped: ", errors.New(""), "wrapped: "},
	}

	for _, test := range tests {
		t.Run(test.msg, func(t *testing.T) {
			assert.Equal(t, test.expected, TrimCause(test.msg, test.cause))
		})
	}
}

func TestInspect(t *testing.T) {
	assert.Nil(t, Inspect(nil))

	err := &fs.PathError{Op: "open", Path: "/nope", Err: fs.ErrNotExist}
	info := Inspect(err)
	require.NotNil(t, info)

	assert.Equal(t, "*fs.PathError", info.Name)
	assert.Equal(t, "open /nope", info.Message)
	assert.Equal(t, fs.ErrNotExist, info.Cause)
	assert.Empty(t, info.Stack)
	assert.Nil(t, info.Code)
	// Err holds the cause, so it's dropped
	assert.Equal(t, []Field{{Key: "Op", Value: "open"}, {Key: "Path", Value: "/nope"}}, info.Fields)

	t.Run("inspectors", func(t *testing.T) {
		info := Inspect(err, Inspector(func(err error, info *ErrorInfo) {
			info.Name = "PathError"
			info.Delete("Op")
		}), Inspector(func(err error, info *ErrorInfo) {
			// runs after the first
			info.Set("name", info.Name)
		}))

		assert.Equal(t, "PathError", info.Name)
		assert.Equal(t, []Field{{Key: "Path", Value: "/nope"}, {Key: "name", Value: "PathError"}}, info.Fields)
	})

	t.Run("cause field", func(t *testing.T) {
		type causer struct {
			error
			Cause error
		}
		inner := errors.New("inner")
		info := Inspect(causer{error: errors.New("outer: inner"), Cause: inner})

		assert.Equal(t, inner, info.Cause)
		assert.Equal(t, "outer", info.Message)
		assert.Empty(t, info.Fields)
	})

	t.Run("Cause method", func(t *testing.T) {
		inner := errors.New("inner")
		err := &withCause{msg: "outer", cause: inner}

		info := Inspect(err)
		assert.Equal(t, inner, info.Cause)
		assert.Equal(t, "outer", info.Message)
	})
}

type withCause struct {
	msg   string
	cause error
}

func (e *withCause) Error() string {
	return e.msg + ": " + e.cause.Error()
}

func (e *withCause) Cause() error {
	return e.cause
}

func TestErrorInfo_Fields(t *testing.T) {
	info := &ErrorInfo{}

	info.Set("a", 1)
	info.Set("b", 2)
	info.Set("a", 3)
	assert.Equal(t, []Field{{Key: "a", Value: 3}, {Key: "b", Value: 2}}, info.Fields)

	v, ok := info.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = info.Get("c")
	assert.False(t, ok)

	info.Delete("a")
	info.Delete("c")
	assert.Equal(t, []Field{{Key: "b", Value: 2}}, info.Fields)
}

func TestName(t *testing.T) {
	assert.Equal(t, "", Name(nil))
	assert.Equal(t, "*errors.errorString", Name(errors.New("boom")))
	assert.Equal(t, "*fmt.wrapError", Name(fmt.Errorf("a: %w", errors.New("b"))))
	assert.Equal(t, "*errplain.codedError", Name(&codedError{}))
}

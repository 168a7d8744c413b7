// Package goerrors provides an errplain hook to integrate go-errors stacktraces.
// The hook will detect errors created with github.com/go-errors/errors, and render
// their stacks into the flattened error.
package goerrors

import (
	"github.com/ansel1/errplain"
	goerr "github.com/go-errors/errors"
)

// Install installs Inspector as an errplain hook.
func Install() {
	errplain.AddHooks(Inspector())
}

type callerser interface {
	Callers() []uintptr
}

// Inspector detects errors implementing callerser and returning a non-empty stack, and
// renders the stack with errplain.FormatStack.  *errors.Error from go-errors is also
// named after the type of the error it wraps.
func Inspector() errplain.Inspector {
	return func(err error, info *errplain.ErrorInfo) {
		if ge, ok := err.(*goerr.Error); ok && ge.Err != nil {
			info.Name = ge.TypeName()
		}

		if info.Stack != "" {
			return
		}

		if c, ok := err.(callerser); ok {
			if stack := c.Callers(); len(stack) > 0 {
				info.Stack = errplain.FormatStack(stack)
			}
		}
	}
}

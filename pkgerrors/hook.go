// Package pkgerrors provides an errplain hook to integrate pkg/errors stacktraces.
// The hook will detect errors created with github.com/pkg/errors, and render their
// stacks into the flattened error.
package pkgerrors

import (
	"fmt"
	"strings"

	"github.com/ansel1/errplain"
	"github.com/pkg/errors"
)

// Install installs Inspector() as an errplain hook.
func Install() {
	errplain.AddHooks(Inspector())
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Inspector sets the stack of errors created by github.com/pkg/errors, which have a
// stack attached, unless an earlier inspector already set one.
func Inspector() errplain.Inspector {
	return func(err error, info *errplain.ErrorInfo) {
		if info.Stack != "" {
			return
		}

		if s, ok := err.(stackTracer); ok {
			info.Stack = FormatStackTrace(s.StackTrace())
		}
	}
}

// FormatStackTrace renders a pkg/errors stack in the same format as errplain.FormatStack.
func FormatStackTrace(st errors.StackTrace) string {
	lines := make([]string, len(st))
	for i, f := range st {
		lines[i] = fmt.Sprintf("%+v", f)
	}
	return strings.Join(lines, "\n")
}

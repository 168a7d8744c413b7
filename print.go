package errplain

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	goerr "github.com/go-errors/errors"
)

// MaxStackDepth is the maximum number of stackframes captured by CaptureStack.
var MaxStackDepth = 50

// CaptureStack returns the program counters of the caller's stack, skipping skip frames.
// skip == 0 starts at the caller of CaptureStack.
func CaptureStack(skip int) []uintptr {
	s := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, s[:])
	return s[:length]
}

// FormatStack renders a stack of program counters, as returned by runtime.Callers, the
// same way the runtime prints goroutine stacks:
//
//	github.com/ansel1/errplain.TestFormatStack
//		/src/errplain/print_test.go:12
//
// Returns "" if stack is empty.
func FormatStack(stack []uintptr) string {
	lines := make([]string, 0, len(stack))
	for _, pc := range stack {
		sf := goerr.NewStackFrame(pc)
		lines = append(lines, FormatFrame(sf.Package, sf.Name, sf.File, sf.LineNumber))
	}
	return strings.Join(lines, "\n")
}

// FormatFrame renders a single stackframe.
func FormatFrame(pkg, function, file string, line int) string {
	if pkg != "" {
		function = pkg + "." + function
	}
	return fmt.Sprintf("%s\n\t%s:%d", function, file, line)
}

// funcLabel renders a function value as "[Function: name]".  Closures are anonymous.
func funcLabel(fn reflect.Value) string {
	name := "anonymous"
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		if n := shortFuncName(f.Name()); n != "" {
			name = n
		}
	}
	return "[Function: " + name + "]"
}

// shortFuncName strips the package path from a runtime function name.  Returns "" for
// closures, which the runtime names like "pkg.Outer.func1" or "pkg.Outer.func1.2".
func shortFuncName(full string) string {
	name := full[strings.LastIndex(full, "/")+1:]
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")

	last := name[strings.LastIndex(name, ".")+1:]
	if isDigits(strings.TrimPrefix(last, "func")) {
		return ""
	}
	return name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

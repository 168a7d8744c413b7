// Package merryerr provides an errplain hook for errors created with github.com/ansel1/merry/v2.
//
// A merry error is a chain of wrappers, each attaching a single value to the error beneath
// it.  Flattened naively, each wrapper would become a separate node in the cause chain.
// The hook renders the whole chain as one error instead: merry's message, cause, stacktrace,
// HTTP status code, user message, and any other values attached with merry.WithValue.
package merryerr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/ansel1/errplain"
	"github.com/ansel1/merry/v2"
)

const merryPkgPath = "github.com/ansel1/merry/v2"

// UserMessageKey is the key the user message is rendered under.
var UserMessageKey = "userMessage"

// Install installs Inspector() as an errplain hook.
func Install() {
	errplain.AddHooks(Inspector())
}

// Inspector collapses the wrappers of a merry error into a single ErrorInfo.  The error is
// named after the error merry wrapped, e.g. "*errors.errorString" for merry.New().
func Inspector() errplain.Inspector {
	return func(err error, info *errplain.ErrorInfo) {
		if !isMerry(err) {
			return
		}

		base := baseError(err)
		if base == nil {
			return
		}
		bi := errplain.Inspect(base)

		info.Name = bi.Name
		info.Fields = bi.Fields
		info.Code = bi.Code

		info.Cause = bi.Cause
		if c := merry.Cause(err); c != nil {
			info.Cause = c
		}

		info.Stack = merry.Stacktrace(err)
		if info.Stack == "" {
			info.Stack = bi.Stack
		}

		if um := merry.UserMessage(err); um != "" {
			info.Set(UserMessageKey, um)
		}

		for _, v := range values(err) {
			switch {
			case !v.internal:
				info.Set(v.key, v.value)
			case v.key == "http status code":
				info.Code = v.value
			}
		}

		info.Message = errplain.TrimCause(err.Error(), info.Cause)
	}
}

func isMerry(err error) bool {
	t := reflect.TypeOf(err)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == merryPkgPath
}

// baseError returns the first error in the wrapper chain which wasn't created by merry.
func baseError(err error) error {
	for err != nil && isMerry(err) {
		err = errors.Unwrap(err)
	}
	return err
}

type value struct {
	key      string
	value    interface{}
	internal bool
}

// values returns the values attached to err, sorted by key.
func values(err error) []value {
	m := merry.Values(err)
	vals := make([]value, 0, len(m))
	for k, v := range m {
		t := reflect.TypeOf(k)
		vals = append(vals, value{
			key:      fmt.Sprint(k),
			value:    v,
			internal: t != nil && t.PkgPath() == merryPkgPath,
		})
	}

	sort.Slice(vals, func(i, j int) bool {
		return vals[i].key < vals[j].key
	})

	return vals
}

package errplain

import (
	"fmt"
	"reflect"
	"strings"
)

// Marshaler is implemented by values which know how to render themselves as plain data.
// The flattener calls MarshalPlain instead of traversing the value, and flattens the result
// in its place.  An implementation may return its receiver, which is then traversed
// generically.  While the result is flattened, the receiver, or a value equal to it, is not
// handed to MarshalPlain again; other values of the same type are.
//
// Values produced by a Marshaler do not contribute to the aggregated message and stack.
//
// If MarshalPlain returns an error, Flatten stops and returns that error unmodified.
type Marshaler interface {
	MarshalPlain() (interface{}, error)
}

// MarshalFunc renders values the flattener should not traverse generically, typically
// types from other packages, which can't implement Marshaler.  If ok is false, the
// value is passed to the next MarshalFunc, or traversed generically.  The returned
// value must already be plain data.  Its maps and slices are copied into the output.
//
// A non-nil err stops Flatten, which returns err unmodified.
type MarshalFunc func(v interface{}) (plain interface{}, ok bool, err error)

// Apply implements Option.
func (m MarshalFunc) Apply(c *Config) {
	WithMarshaler(m).Apply(c)
}

// Field is a named property of an error.
type Field struct {
	Key   string
	Value interface{}
}

// ErrorInfo is the flattener's view of a single error in a chain.  It is filled in by
// the built-in inspection, then refined by each configured Inspector in turn.
type ErrorInfo struct {
	// Name is written to the name key.  Defaults to the error's dynamic type, e.g. "*fs.PathError".
	Name string
	// Message is the error's own message, without the text of its cause.  Empty means the
	// error adds nothing to the aggregated message.
	Message string
	// Stack is the error's own stacktrace, if any.
	Stack string
	// Code is written to the code key if not nil.
	Code interface{}
	// Cause is the next error in the chain.  It may be an error, a slice of errors, a
	// zero-argument function returning the cause, or any other value.
	Cause interface{}
	// Fields are the error's other properties, in order.
	Fields []Field
}

// Set replaces the value of the field named key, or appends a new field.
func (i *ErrorInfo) Set(key string, value interface{}) {
	for n := range i.Fields {
		if i.Fields[n].Key == key {
			i.Fields[n].Value = value
			return
		}
	}
	i.Fields = append(i.Fields, Field{Key: key, Value: value})
}

// Get returns the value of the field named key.
func (i *ErrorInfo) Get(key string) (interface{}, bool) {
	for _, f := range i.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Delete removes the field named key.
func (i *ErrorInfo) Delete(key string) {
	n := 0
	for _, f := range i.Fields {
		if f.Key != key {
			i.Fields[n] = f
			n++
		}
	}
	i.Fields = i.Fields[:n]
}

// Inspector refines the ErrorInfo of err.  Inspectors usually check whether err is a
// type they understand, and return without changes otherwise.
type Inspector func(err error, info *ErrorInfo)

// Apply implements Option, so an Inspector can be passed directly to Flatten or AddHooks.
func (i Inspector) Apply(c *Config) {
	WithInspector(i).Apply(c)
}

// Inspect returns the ErrorInfo the flattener would use for err, without traversing
// its cause.
func Inspect(err error, opts ...Option) *ErrorInfo {
	if err == nil {
		return nil
	}
	return inspect(err, newConfig(opts))
}

func inspect(err error, c *Config) *ErrorInfo {
	info := &ErrorInfo{
		Name: Name(err),
	}

	info.Cause = causeOf(err)
	if info.Cause == nil {
		info.Cause = elementsOf(err)
	}
	info.Fields = errorFields(err, info)
	info.Message = TrimCause(errorString(err), info.Cause)
	info.Stack = stackOf(err)
	info.Code = codeOf(err)

	for _, i := range c.Inspectors {
		i(err, info)
	}

	return info
}

// causeOf follows the conventions for declaring a wrapped error, in order of precedence:
// Unwrap() []error, Cause() error, Unwrap() error.
func causeOf(err error) (cause interface{}) {
	defer func() {
		if r := recover(); r != nil {
			cause = panicMarker(r)
		}
	}()

	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var errs []error
		for _, c := range e.Unwrap() {
			if !isNil(c) {
				errs = append(errs, c)
			}
		}
		if len(errs) > 0 {
			return errs
		}
		return nil
	case interface{ Cause() error }:
		if c := e.Cause(); !isNil(c) {
			return c
		}
	}

	if e, ok := err.(interface{ Unwrap() error }); ok {
		if c := e.Unwrap(); !isNil(c) {
			return c
		}
	}

	return nil
}

// elementsOf returns the elements of an error whose underlying type is a slice or array,
// like a list of validation errors.  They become its cause.
func elementsOf(err error) interface{} {
	rv := reflect.ValueOf(err)
	if !isSequence(rv) {
		return nil
	}
	elems := elements(rv)
	if len(elems) == 0 {
		return nil
	}
	return elems
}

// errorFields returns the exported struct fields of err.  A field holding the error's
// cause is dropped, since the cause is rendered under the cause key.  If err has no
// cause method, but has a field named cause, that field becomes the cause.
func errorFields(err error, info *ErrorInfo) []Field {
	rv := indirect(reflect.ValueOf(err))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := structFields(rv)
	n := 0
	for _, f := range fields {
		switch {
		case strings.EqualFold(f.Key, causeKey):
			if info.Cause == nil && !isNil(f.Value) {
				info.Cause = f.Value
			}
			continue
		case info.Cause != nil && sameValue(f.Value, info.Cause):
			continue
		}
		fields[n] = f
		n++
	}

	return fields[:n]
}

// TrimCause strips the text contributed by cause from msg, following the conventions of
// fmt.Errorf("msg: %w"), pkg/errors and errors.Join:
//
//   - if msg ends with ": " + cause.Error(), that suffix is removed
//   - if msg equals cause.Error(), the result is empty
//   - if cause is a slice of errors, and msg is their messages joined with newlines, the
//     result is empty.  A []interface{} holding only errors counts as a slice of errors.
func TrimCause(msg string, cause interface{}) string {
	switch c := cause.(type) {
	case error:
		cm := errorString(c)
		switch {
		case cm == "":
		case msg == cm:
			return ""
		case strings.HasSuffix(msg, ": "+cm):
			return strings.TrimSuffix(msg, ": "+cm)
		}
	case []error:
		parts := make([]string, 0, len(c))
		for _, e := range c {
			parts = append(parts, errorString(e))
		}
		if msg == strings.Join(parts, "\n") {
			return ""
		}
	case []interface{}:
		errs := make([]error, 0, len(c))
		for _, e := range c {
			err, ok := e.(error)
			if !ok {
				return msg
			}
			errs = append(errs, err)
		}
		return TrimCause(msg, errs)
	}
	return msg
}

// errorString returns err.Error(), or "" if that panics, which is common
// for nil pointer receivers.
func errorString(err error) (s string) {
	if isNil(err) {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()
	return err.Error()
}

func stackOf(err error) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()

	if st, ok := err.(interface{ StackTrace() string }); ok {
		return st.StackTrace()
	}
	return xerrorsStack(err)
}

// codeOf calls a zero-argument Code method, if err has one.
func codeOf(err error) (code interface{}) {
	defer func() {
		if r := recover(); r != nil {
			code = nil
		}
	}()

	m := reflect.ValueOf(err).MethodByName("Code")
	if !m.IsValid() {
		return nil
	}
	t := m.Type()
	if t.NumIn() != 0 || t.NumOut() != 1 {
		return nil
	}

	code = m.Call(nil)[0].Interface()
	if isNil(code) {
		return nil
	}
	return code
}

func panicMarker(r interface{}) string {
	return fmt.Sprintf("[Panic: %v]", r)
}

// sameValue reports whether a and b are the same value, without panicking on
// uncomparable dynamic types.
func sameValue(a, b interface{}) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Package errplain converts errors, and the graphs of values they reference, into plain data:
// maps, slices, strings, numbers, bools and nil, ready to be encoded as JSON by a logging
// pipeline or telemetry exporter.
//
//	obj, err := errplain.Object(fmt.Errorf("loading config: %w", os.ErrNotExist))
//
//	// {
//	//   "name": "*fmt.wrapError",
//	//   "message": "loading config: file does not exist",
//	//   "stack": "",
//	//   "cause": {"name": "*errors.errorString", "message": "file does not exist"}
//	// }
//
// The whole cause chain is traversed.  The root's message is the messages of every error in
// the chain, outermost first, joined with ": ".  Its stack is their stacktraces, joined with
// "\ncaused by: ".  Nested causes keep their own name, message and stack.
//
// The output never refers back into the input: values which refer to one of their ancestors
// are replaced with "[Circular]", binary buffers with "[object Buffer]", and functions are
// dropped, except for a cause stored behind an accessor function, which is called.
//
// Values can take over their own rendering by implementing Marshaler, or json.Marshaler.
// Support for other error libraries is added with Inspectors; see the pkgerrors, goerrors,
// merryerr and grpcstatus packages.
package errplain

import (
	"encoding/json"
	"reflect"
)

// Flatten converts v into plain data.
//
// If v is not an object, it is returned unchanged, except that functions are rendered as
// "[Function: name]" (or "[Function: anonymous]" for closures), and binary buffers as
// "[object Buffer]".
//
// Objects (errors, structs, maps, slices, arrays and pointers to them) are traversed
// depth first.  Errors flatten to a map with their exported fields, their cause, and the
// name, message, stack and code common properties.  Structs flatten to maps following
// encoding/json's field naming, maps to maps, slices and arrays to []interface{}.  If the
// root flattens to a map, its message and stack are replaced with the aggregated message and
// stack of every node.
//
// The only errors returned are errors returned by a Marshaler, MarshalFunc or
// json.Marshaler, which are returned unmodified.  Panics in those are not recovered.
// Panics raised by an error's Error, Unwrap, Cause, Code or stack methods are recovered:
// the property is omitted, or, for causes, replaced with "[Panic: value]".
//
// Flatten is safe for concurrent use, as long as the same values aren't concurrently
// mutated.  Global hooks must be installed before.
func Flatten(v interface{}, opts ...Option) (interface{}, error) {
	c := newConfig(opts)

	if c.isBuffer(v) {
		return BufferMarker, nil
	}

	if !isObject(v) {
		return primitive(v), nil
	}

	f := &flattener{cfg: c}
	return f.flatten(v)
}

// Object flattens err.  If err is nil, returns nil.  If err is rendered as something other
// than a map by a custom serializer, the rendering is returned under the key "value".
func Object(err error, opts ...Option) (map[string]interface{}, error) {
	if isNil(err) {
		return nil, nil
	}

	v, ferr := Flatten(err, opts...)
	if ferr != nil {
		return nil, ferr
	}

	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	return map[string]interface{}{"value": v}, nil
}

// MarshalJSON flattens v, and encodes the result as JSON.
func MarshalJSON(v interface{}, opts ...Option) ([]byte, error) {
	plain, err := Flatten(v, opts...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(plain)
}

// Name returns the name errplain gives to err's type, e.g. "*fs.PathError", the same
// convention OpenTelemetry uses for exception.type.
func Name(err error) string {
	if err == nil {
		return ""
	}
	return reflect.TypeOf(err).String()
}

package errplain

import (
	"bytes"
	"encoding"
	"encoding/json"
	"reflect"
)

// Option configures a call to Flatten.
type Option interface {
	// Apply modifies the configuration.  Options are applied in order: global
	// hooks first, then the options passed to the call.
	Apply(*Config)
}

// OptionFunc implements Option.
type OptionFunc func(*Config)

// Apply implements the Option interface.
func (o OptionFunc) Apply(c *Config) {
	o(c)
}

// Config is the resolved configuration of a single Flatten call.
type Config struct {
	// MaxDepth caps recursion.  Negative means unbounded.
	MaxDepth int
	// OpenTelemetry renames the root keys name and stack to type and stacktrace.
	OpenTelemetry bool
	// IsBinaryBuffer reports whether a value should be rendered as "[object Buffer]".
	// nil means nothing is a buffer.
	IsBinaryBuffer func(interface{}) bool
	// Inspectors refine the ErrorInfo of each error node, in order.
	Inspectors []Inspector
	// Marshalers are consulted before the generic traversal of each object node.
	Marshalers []MarshalFunc
}

func newConfig(opts []Option) *Config {
	c := &Config{
		MaxDepth:       -1,
		IsBinaryBuffer: IsBinaryBuffer,
	}

	for _, o := range hooks {
		o.Apply(c)
	}

	for _, o := range opts {
		if o != nil {
			o.Apply(c)
		}
	}

	return c
}

func (c *Config) isBuffer(v interface{}) bool {
	return !isNil(v) && c.IsBinaryBuffer != nil && c.IsBinaryBuffer(v)
}

func (c *Config) depthExceeded(depth int) bool {
	return c.MaxDepth >= 0 && depth >= c.MaxDepth
}

// WithMaxDepth stops traversal at depth n.  Objects at depth n or deeper are rendered
// as empty maps or slices.  The root is depth 0, so n == 0 yields an empty root.  n < 0
// removes the limit.
func WithMaxDepth(n int) Option {
	return OptionFunc(func(c *Config) {
		c.MaxDepth = n
	})
}

// WithOpenTelemetry renames the root's name key to type, and its stack key to stacktrace,
// matching the exception attributes of the OpenTelemetry semantic conventions.  Nested
// causes keep name and stack.
func WithOpenTelemetry(enabled bool) Option {
	return OptionFunc(func(c *Config) {
		c.OpenTelemetry = enabled
	})
}

// WithBufferDetector replaces the predicate used to detect binary buffers.  Passing nil
// disables buffer detection.
func WithBufferDetector(isBuffer func(interface{}) bool) Option {
	return OptionFunc(func(c *Config) {
		c.IsBinaryBuffer = isBuffer
	})
}

// WithInspector appends an Inspector.
func WithInspector(i Inspector) Option {
	return OptionFunc(func(c *Config) {
		if i != nil {
			c.Inspectors = append(c.Inspectors, i)
		}
	})
}

// WithMarshaler appends a MarshalFunc.
func WithMarshaler(m MarshalFunc) Option {
	return OptionFunc(func(c *Config) {
		if m != nil {
			c.Marshalers = append(c.Marshalers, m)
		}
	})
}

// IsBinaryBuffer is the default buffer predicate.  It matches byte slices and arrays,
// including named byte slice types, and bytes.Buffers.  Types which implement json.Marshaler
// or encoding.TextMarshaler, like json.RawMessage or net.IP, are not buffers: they know how
// to render themselves.
func IsBinaryBuffer(v interface{}) bool {
	switch v.(type) {
	case []byte, *bytes.Buffer, bytes.Buffer:
		return true
	case nil, json.Marshaler, encoding.TextMarshaler:
		return false
	}

	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

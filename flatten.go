package errplain

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
)

const (
	nameKey       = "name"
	messageKey    = "message"
	stackKey      = "stack"
	codeKey       = "code"
	causeKey      = "cause"
	typeKey       = "type"
	stacktraceKey = "stacktrace"

	// CircularMarker replaces a value which refers back to one of its ancestors.
	CircularMarker = "[Circular]"
	// BufferMarker replaces binary buffers.
	BufferMarker = "[object Buffer]"

	messageSeparator = ": "
	stackSeparator   = "\ncaused by: "
)

// flattener holds the state of one Flatten call.
type flattener struct {
	cfg *Config

	// messages and stacks accumulate the message and stack of each node, deepest first.
	messages []string
	stacks   []string

	// delegating holds the nodes whose custom serializer is running.
	delegating *guard
}

// guard tracks nodes by identity, or by value for nodes without one.
type guard struct {
	ids    map[identity]bool
	values []interface{}
}

func (f *flattener) flatten(v interface{}) (interface{}, error) {
	out, err := f.descend(v, nil, 0)
	if err != nil {
		return nil, err
	}

	m, ok := out.(map[string]interface{})
	if !ok {
		return out, nil
	}

	m[messageKey] = joinReversed(f.messages, messageSeparator)
	m[stackKey] = joinReversed(f.stacks, stackSeparator)

	if f.cfg.OpenTelemetry {
		rename(m, nameKey, typeKey)
		rename(m, stackKey, stacktraceKey)
	}

	return m, nil
}

// descend flattens an object node.  p is the path of its ancestors.
func (f *flattener) descend(v interface{}, p *path, depth int) (interface{}, error) {
	rv := reflect.ValueOf(v)
	p = p.with(rv)

	if f.cfg.depthExceeded(depth) {
		if _, isErr := v.(error); !isErr && isSequence(rv) {
			return []interface{}{}, nil
		}
		return map[string]interface{}{}, nil
	}

	if out, ok, err := f.delegate(v, p, depth); ok || err != nil {
		return out, err
	}

	return f.generic(v, p, depth)
}

// generic flattens a node without consulting custom serializers.  Errors are checked
// first: an error whose underlying type is a slice is still an error.
func (f *flattener) generic(v interface{}, p *path, depth int) (interface{}, error) {
	if err, ok := v.(error); ok {
		return f.errorObject(err, p, depth)
	}

	rv := reflect.ValueOf(v)
	if isSequence(rv) {
		return f.sequence(rv, p, depth)
	}

	return f.object(rv, p, depth)
}

func (f *flattener) sequence(rv reflect.Value, p *path, depth int) (interface{}, error) {
	elems := elements(rv)
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		val, keep, err := f.value("", e, p, depth)
		if err != nil {
			return nil, err
		}
		if keep {
			out[i] = val
		}
	}
	return out, nil
}

func (f *flattener) object(rv reflect.Value, p *path, depth int) (interface{}, error) {
	props := properties(rv)
	out := make(map[string]interface{}, len(props))
	if err := f.assign(out, props, p, depth); err != nil {
		return nil, err
	}

	// plain objects take part in aggregation too
	for _, prop := range props {
		s, ok := prop.Value.(string)
		if !ok {
			continue
		}
		switch prop.Key {
		case messageKey:
			f.messages = append(f.messages, s)
		case stackKey:
			f.stacks = append(f.stacks, s)
		}
	}

	return out, nil
}

func (f *flattener) errorObject(err error, p *path, depth int) (interface{}, error) {
	info := inspect(err, f.cfg)

	out := make(map[string]interface{}, len(info.Fields)+5)
	if e := f.assign(out, info.Fields, p, depth); e != nil {
		return nil, e
	}

	if info.Cause != nil {
		if e := f.assign(out, []Field{{Key: causeKey, Value: info.Cause}}, p, depth); e != nil {
			return nil, e
		}
	}

	if info.Name != "" {
		out[nameKey] = info.Name
	}

	if info.Code != nil {
		if e := f.assign(out, []Field{{Key: codeKey, Value: info.Code}}, p, depth); e != nil {
			return nil, e
		}
	}

	if info.Message != "" {
		out[messageKey] = info.Message
		f.messages = append(f.messages, info.Message)
	}

	if info.Stack != "" {
		out[stackKey] = info.Stack
		f.stacks = append(f.stacks, info.Stack)
	}

	return out, nil
}

func (f *flattener) assign(out map[string]interface{}, props []Field, p *path, depth int) error {
	for _, prop := range props {
		val, keep, err := f.value(prop.Key, prop.Value, p, depth)
		if err != nil {
			return err
		}
		if keep {
			out[prop.Key] = val
		}
	}
	return nil
}

// value flattens the value of a property of a node at depth.  keep is false if the
// property should be omitted.
func (f *flattener) value(key string, v interface{}, p *path, depth int) (out interface{}, keep bool, err error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func {
		if !strings.EqualFold(key, causeKey) {
			return nil, false, nil
		}
		if v, keep = callCause(rv); !keep {
			return nil, false, nil
		}
	}

	if f.cfg.isBuffer(v) {
		return BufferMarker, true, nil
	}

	if !isObject(v) {
		return primitive(v), true, nil
	}

	rv := reflect.ValueOf(v)
	if p.contains(rv) {
		return CircularMarker, true, nil
	}

	out, err = f.descend(v, p, depth+1)
	return out, true, err
}

// callCause resolves a cause stored behind a zero-argument accessor function.  Functions
// which take arguments are not accessors, and are skipped.
func callCause(fn reflect.Value) (cause interface{}, ok bool) {
	if fn.IsNil() {
		return nil, true
	}

	t := fn.Type()
	if t.NumOut() == 0 || t.NumIn() > 1 || (t.NumIn() == 1 && !t.IsVariadic()) {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok = panicMarker(r), true
		}
	}()

	return fn.Call(nil)[0].Interface(), true
}

// delegate hands v to its custom serializer, if it has one.  ok is false if the
// generic traversal should proceed.
func (f *flattener) delegate(v interface{}, p *path, depth int) (interface{}, bool, error) {
	if f.delegating.holds(v) {
		return nil, false, nil
	}

	if m, ok := v.(Marshaler); ok {
		defer f.enter(v)()

		plain, err := m.MarshalPlain()
		if err != nil {
			return nil, true, err
		}
		if !isObject(plain) {
			return primitive(plain), true, nil
		}

		// the result is detached from the aggregation of the enclosing error
		sub := &flattener{cfg: f.cfg, delegating: f.delegating}

		if sameValue(plain, v) {
			out, err := sub.generic(plain, p, depth)
			return out, true, err
		}
		if p.contains(reflect.ValueOf(plain)) {
			return CircularMarker, true, nil
		}

		out, err := sub.descend(plain, p, depth)
		return out, true, err
	}

	for _, fn := range f.cfg.Marshalers {
		if plain, ok, err := fn(v); ok || err != nil {
			if err != nil {
				return nil, true, err
			}
			return clonePlain(plain), true, nil
		}
	}

	switch m := v.(type) {
	case json.Marshaler:
		b, err := m.MarshalJSON()
		if err != nil {
			return nil, true, err
		}
		var plain interface{}
		if err := json.Unmarshal(b, &plain); err != nil {
			return nil, true, err
		}
		return plain, true, nil
	case encoding.TextMarshaler:
		b, err := m.MarshalText()
		if err != nil {
			return nil, true, err
		}
		return string(b), true, nil
	}

	return nil, false, nil
}

// enter marks v as delegating, and returns the func which unmarks it.
func (f *flattener) enter(v interface{}) func() {
	if f.delegating == nil {
		f.delegating = &guard{ids: map[identity]bool{}}
	}
	g := f.delegating

	if id, ok := identityOf(reflect.ValueOf(v)); ok {
		g.ids[id] = true
		return func() { delete(g.ids, id) }
	}

	g.values = append(g.values, v)
	n := len(g.values)
	return func() { g.values = g.values[:n-1] }
}

// holds reports whether v is delegating.  Values without an identity match only equal
// values, so nested values of the same type still delegate.  Uncomparable values are
// compared deeply.
func (g *guard) holds(v interface{}) bool {
	if g == nil {
		return false
	}
	if id, ok := identityOf(reflect.ValueOf(v)); ok {
		return g.ids[id]
	}
	for _, gv := range g.values {
		if reflect.TypeOf(gv) != reflect.TypeOf(v) {
			continue
		}
		if reflect.TypeOf(v).Comparable() {
			if sameValue(gv, v) {
				return true
			}
		} else if reflect.DeepEqual(gv, v) {
			return true
		}
	}
	return false
}

// clonePlain copies the maps and slices of plain data, so values returned by a
// MarshalFunc are never shared with, or modified through, the output.
func clonePlain(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = clonePlain(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = clonePlain(e)
		}
		return s
	}
	return v
}

func joinReversed(parts []string, sep string) string {
	reversed := make([]string, len(parts))
	for i, s := range parts {
		reversed[len(parts)-1-i] = s
	}
	return strings.Join(reversed, sep)
}

func rename(m map[string]interface{}, from, to string) {
	if v, ok := m[from]; ok {
		delete(m, from)
		m[to] = v
	}
}

package errplain

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unsafe"
)

var (
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	marshalerType     = reflect.TypeOf((*Marshaler)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// isObject reports whether v is traversed, rather than copied.
func isObject(v interface{}) bool {
	if isNil(v) {
		return false
	}

	rv := reflect.ValueOf(v)
	if t := rv.Type(); t.Implements(errorType) || t.Implements(marshalerType) || t.Implements(jsonMarshalerType) {
		return true
	}

	switch indirect(rv).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// isSequence reports whether v flattens to a []interface{}.
func isSequence(rv reflect.Value) bool {
	switch indirect(rv).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// indirect dereferences pointers and interfaces until it reaches a non-pointer, or nil.
func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv
		}
		rv = rv.Elem()
	}
	return rv
}

// primitive renders a non-object value.  Values encoding/json can't represent are replaced
// with descriptive strings.
func primitive(v interface{}) interface{} {
	if isNil(v) {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		return primitive(indirect(rv).Interface())
	case reflect.Func:
		return funcLabel(rv)
	case reflect.Chan, reflect.UnsafePointer:
		return "[" + rv.Type().String() + "]"
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v)
	}
	return v
}

// identity identifies a reference value by type and address.  Slices also record their
// length, so a slice and its prefix are distinct.
type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

func identityOf(rv reflect.Value) (identity, bool) {
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() || rv.Type().Elem().Size() == 0 {
			// zero-sized values may share an address
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	}
	return identity{}, false
}

// path is the chain of ancestors of a node.  Each node extends its parent's path without
// modifying it, so sibling branches never see each other.
type path struct {
	id     identity
	parent *path
}

func (p *path) with(rv reflect.Value) *path {
	if id, ok := identityOf(rv); ok {
		return &path{id: id, parent: p}
	}
	return p
}

func (p *path) contains(rv reflect.Value) bool {
	id, ok := identityOf(rv)
	if !ok {
		return false
	}
	for ; p != nil; p = p.parent {
		if p.id == id {
			return true
		}
	}
	return false
}

// properties enumerates the properties of a struct or map, after dereferencing pointers.
// Struct fields are in declaration order, map entries in order of their keys.
func properties(rv reflect.Value) []Field {
	rv = indirect(rv)
	switch rv.Kind() {
	case reflect.Struct:
		return structFields(rv)
	case reflect.Map:
		return mapEntries(rv)
	}
	return nil
}

// structFields follows encoding/json's rules for naming exported fields: the json tag name
// if set, fields tagged "-" are skipped, empty omitempty fields are skipped, and untagged
// embedded structs are inlined.  An unexported field named cause is included too.
func structFields(rv reflect.Value) []Field {
	if !rv.CanAddr() {
		// copy to make unexported fields readable
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		rv = cp
	}

	var fields []Field
	appendStructFields(&fields, rv)
	return fields
}

func appendStructFields(fields *[]Field, rv reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := rv.Field(i)

		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts := parseTag(tag)

		if sf.Anonymous && name == "" {
			ev := fv
			if ev.Kind() == reflect.Ptr {
				if ev.IsNil() || sf.PkgPath != "" {
					continue
				}
				ev = ev.Elem()
			}
			if ev.Kind() == reflect.Struct {
				if sf.PkgPath != "" {
					// exported fields of an unexported embedded struct are still promoted
					ev = unexported(ev)
				}
				appendStructFields(fields, ev)
				continue
			}
		}

		if sf.PkgPath != "" {
			if sf.Name == causeKey {
				if c := unexported(fv).Interface(); !isNil(c) {
					*fields = append(*fields, Field{Key: causeKey, Value: c})
				}
			}
			continue
		}

		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		*fields = append(*fields, Field{Key: name, Value: fv.Interface()})
	}
}

// unexported returns a readable copy of an unexported field.  fv must be addressable.
func unexported(fv reflect.Value) reflect.Value {
	return reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
}

func parseTag(tag string) (name, opts string) {
	if i := strings.Index(tag, ","); i >= 0 {
		return tag[:i], tag[i+1:]
	}
	return tag, ""
}

func hasOption(opts, opt string) bool {
	for opts != "" {
		var next string
		if i := strings.Index(opts, ","); i >= 0 {
			opts, next = opts[:i], opts[i+1:]
		}
		if opts == opt {
			return true
		}
		opts = next
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

func mapEntries(rv reflect.Value) []Field {
	entries := make([]Field, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, Field{
			Key:   mapKey(iter.Key()),
			Value: iter.Value().Interface(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if b, err := tm.MarshalText(); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(k.Interface())
}

// elements returns the elements of a slice or array, after dereferencing pointers.
func elements(rv reflect.Value) []interface{} {
	rv = indirect(rv)
	elems := make([]interface{}, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems
}

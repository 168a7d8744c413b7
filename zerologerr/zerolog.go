// Package zerologerr adapts errplain to zerolog.
//
// Either install MarshalFunc globally, so every Err() field is flattened:
//
//	zerolog.ErrorMarshalFunc = zerologerr.MarshalFunc()
//
// or flatten individual errors:
//
//	log.Error().Object("error", zerologerr.Err(err)).Msg("request failed")
package zerologerr

import (
	"sort"

	"github.com/ansel1/errplain"
	"github.com/rs/zerolog"
)

// MarshalFunc returns a function suitable for zerolog.ErrorMarshalFunc.  If a custom
// serializer fails while flattening an error, the error is logged as it would be without
// the adapter.
func MarshalFunc(opts ...errplain.Option) func(error) interface{} {
	return func(err error) interface{} {
		obj, ferr := errplain.Object(err, opts...)
		if ferr != nil || obj == nil {
			return err
		}
		return obj
	}
}

// Err returns a zerolog.LogObjectMarshaler which logs the flattened err.
func Err(err error, opts ...errplain.Option) zerolog.LogObjectMarshaler {
	return &object{err: err, opts: opts}
}

type object struct {
	err  error
	opts []errplain.Option
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.  Keys are logged in order.
func (o *object) MarshalZerologObject(e *zerolog.Event) {
	obj, err := errplain.Object(o.err, o.opts...)
	if err != nil {
		e.Str("message", o.err.Error())
		e.AnErr("marshalError", err)
		return
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e.Interface(k, obj[k])
	}
}

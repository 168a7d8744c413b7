// Package otelerr records flattened errors as OpenTelemetry exception events.
//
// span.RecordError only records the outermost error's type and message.  RecordError
// records the aggregated message and stacktrace of the whole cause chain, and the rest of
// the flattened error as JSON under exception.details.
package otelerr

import (
	"encoding/json"
	"fmt"

	"github.com/ansel1/errplain"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// DetailsKey holds the flattened error, minus the attributes set by the semantic conventions.
const DetailsKey = attribute.Key("exception.details")

// RecordError adds an exception event describing err to span.  It is a no-op if err is nil
// or the span isn't recording.  The only errors returned are errors returned by custom
// serializers while flattening err.
func RecordError(span trace.Span, err error, opts ...errplain.Option) error {
	if err == nil || span == nil || !span.IsRecording() {
		return nil
	}

	attrs, ferr := Attributes(err, opts...)
	if ferr != nil {
		return ferr
	}

	span.AddEvent(semconv.ExceptionEventName, trace.WithAttributes(attrs...))
	return nil
}

// Attributes flattens err in OpenTelemetry mode, and returns the exception.type,
// exception.message, exception.stacktrace and exception.details attributes.
func Attributes(err error, opts ...errplain.Option) ([]attribute.KeyValue, error) {
	opts = append(opts[:len(opts):len(opts)], errplain.WithOpenTelemetry(true))

	obj, ferr := errplain.Object(err, opts...)
	if ferr != nil {
		return nil, ferr
	}

	attrs := []attribute.KeyValue{
		semconv.ExceptionTypeKey.String(str(obj["type"])),
		semconv.ExceptionMessageKey.String(str(obj["message"])),
	}
	if st := str(obj["stacktrace"]); st != "" {
		attrs = append(attrs, semconv.ExceptionStacktraceKey.String(st))
	}

	details := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		switch k {
		case "type", "message", "stacktrace":
		default:
			details[k] = v
		}
	}
	if len(details) > 0 {
		b, jerr := json.Marshal(details)
		if jerr != nil {
			return nil, jerr
		}
		attrs = append(attrs, DetailsKey.String(string(b)))
	}

	return attrs, nil
}

func str(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}

package zerologerr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ansel1/errplain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

var expected = map[string]interface{}{
	"name":    "*fmt.wrapError",
	"message": "outer: inner",
	"stack":   "",
	"cause": map[string]interface{}{
		"name":    "*errors.errorString",
		"message": "inner",
	},
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	err := fmt.Errorf("outer: %w", errors.New("inner"))
	logger.Error().Object("error", Err(err)).Msg("request failed")

	line := decode(t, &buf)
	assert.Equal(t, "request failed", line["message"])
	assert.Equal(t, expected, line["error"])
}

func TestErr_MarshalError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	errMarshal := errors.New("marshal failed")
	failing := errplain.WithMarshaler(func(v interface{}) (interface{}, bool, error) {
		return nil, true, errMarshal
	})

	logger.Error().Object("error", Err(errors.New("boom"), failing)).Send()

	line := decode(t, &buf)
	assert.Equal(t, map[string]interface{}{
		"message":      "boom",
		"marshalError": "marshal failed",
	}, line["error"])
}

func TestMarshalFunc(t *testing.T) {
	prev := zerolog.ErrorMarshalFunc
	zerolog.ErrorMarshalFunc = MarshalFunc()
	defer func() { zerolog.ErrorMarshalFunc = prev }()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().Err(fmt.Errorf("outer: %w", errors.New("inner"))).Msg("request failed")

	line := decode(t, &buf)
	assert.Equal(t, expected, line[zerolog.ErrorFieldName])

	// falls back to the error itself
	fn := MarshalFunc(errplain.WithMarshaler(func(v interface{}) (interface{}, bool, error) {
		return nil, true, errors.New("nope")
	}))
	err := errors.New("boom")
	assert.Equal(t, err, fn(err))
}

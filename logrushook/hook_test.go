package logrushook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ansel1/errplain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(hook logrus.Hook) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.AddHook(hook)
	return logger, buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestHook(t *testing.T) {
	logger, buf := newLogger(New())

	err := fmt.Errorf("outer: %w", errors.New("inner"))
	logger.WithError(err).Error("request failed")

	line := decode(t, buf)
	assert.Equal(t, "request failed", line["msg"])
	assert.Equal(t, map[string]interface{}{
		"name":    "*fmt.wrapError",
		"message": "outer: inner",
		"stack":   "",
		"cause": map[string]interface{}{
			"name":    "*errors.errorString",
			"message": "inner",
		},
	}, line[logrus.ErrorKey])
}

func TestHook_Keys(t *testing.T) {
	hook := New(errplain.WithOpenTelemetry(true))
	hook.Keys = []string{"cause", "other"}
	logger, buf := newLogger(hook)

	logger.WithFields(logrus.Fields{
		"cause":         errors.New("boom"),
		"other":         "not an error",
		logrus.ErrorKey: errors.New("untouched"),
	}).Warn("careful")

	line := decode(t, buf)
	assert.Equal(t, map[string]interface{}{
		"type":       "*errors.errorString",
		"message":    "boom",
		"stacktrace": "",
	}, line["cause"])
	assert.Equal(t, "not an error", line["other"])
	assert.Equal(t, "untouched", line[logrus.ErrorKey])
}

func TestHook_Levels(t *testing.T) {
	assert.Equal(t, logrus.AllLevels, New().Levels())

	hook := New()
	hook.LogLevels = []logrus.Level{logrus.ErrorLevel}
	logger, buf := newLogger(hook)

	logger.WithError(errors.New("boom")).Info("informational")
	line := decode(t, buf)
	assert.Equal(t, "boom", line[logrus.ErrorKey])
}

type failingMarshaler struct{}

var errMarshal = errors.New("marshal failed")

func (failingMarshaler) MarshalPlain() (interface{}, error) {
	return nil, errMarshal
}

func TestHook_Fire(t *testing.T) {
	entry := logrus.NewEntry(logrus.New()).WithError(errors.New("boom"))

	hook := New(errplain.WithMarshaler(func(v interface{}) (interface{}, bool, error) {
		return nil, true, errMarshal
	}))
	assert.Equal(t, errMarshal, hook.Fire(entry))

	// nothing to do
	entry = logrus.NewEntry(logrus.New())
	assert.NoError(t, New().Fire(entry))
	assert.Empty(t, entry.Data)

	entry = logrus.NewEntry(logrus.New()).WithField(logrus.ErrorKey, failingMarshaler{})
	assert.NoError(t, New().Fire(entry))
}

// Package logrushook provides a logrus hook which replaces errors attached to log entries
// with their flattened form, so formatters like logrus.JSONFormatter log the whole cause
// chain instead of err.Error().
//
//	logger.AddHook(logrushook.New())
//	logger.WithError(err).Error("request failed")
package logrushook

import (
	"github.com/ansel1/errplain"
	"github.com/sirupsen/logrus"
)

// Hook implements logrus.Hook.
type Hook struct {
	// Options are passed to errplain.Object.
	Options []errplain.Option
	// LogLevels the hook fires for.  nil means all levels.
	LogLevels []logrus.Level
	// Keys are the entry fields which are flattened.  nil means logrus.ErrorKey.
	Keys []string
}

// ensure Hook implements logrus.Hook
var _ logrus.Hook = (*Hook)(nil)

// New returns a Hook which flattens errors with opts, at all levels.
func New(opts ...errplain.Option) *Hook {
	return &Hook{Options: opts}
}

// Levels implements logrus.Hook.
func (h *Hook) Levels() []logrus.Level {
	if h.LogLevels == nil {
		return logrus.AllLevels
	}
	return h.LogLevels
}

// Fire implements logrus.Hook.  Fields which don't hold an error are left alone.
func (h *Hook) Fire(entry *logrus.Entry) error {
	keys := h.Keys
	if keys == nil {
		keys = []string{logrus.ErrorKey}
	}

	for _, key := range keys {
		err, ok := entry.Data[key].(error)
		if !ok {
			continue
		}

		obj, ferr := errplain.Object(err, h.Options...)
		if ferr != nil {
			return ferr
		}
		if obj != nil {
			entry.Data[key] = obj
		}
	}

	return nil
}

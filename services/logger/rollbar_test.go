package logsvc

import (
	"errors"
	"testing"

	"github.com/rollbar/rollbar-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darulhuda/madrasa/core"
)

func TestRollbarLogger(t *testing.T) {
	rollbar.SetEnabled(false)
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := NewRollbarLogger(base, "auth")

	l.Warn("authentication step failed", errors.New("i/o timeout"), map[string]interface{}{"step": "teacher"},
		core.Person{ID: "u1"}, core.Person{ID: "u2"}, 42)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "authentication step failed", entry.Message)
	assert.Equal(t, "auth", entry.Data["component"])
	assert.Equal(t, "teacher", entry.Data["step"])
	assert.Equal(t, "u1", entry.Data["user"])
	assert.Equal(t, 42, entry.Data["extra"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "i/o timeout")

	l.Debug("plain")
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.NotContains(t, hook.LastEntry().Data, "user")
	assert.Len(t, hook.AllEntries(), 2)
}

func TestRollbarLogger_prepare(t *testing.T) {
	rollbar.SetEnabled(false)
	base, _ := test.NewNullLogger()
	l := NewRollbarLogger(base, "api")

	err := errors.New("boom")
	args, _ := l.prepare("msg", []interface{}{core.Person{ID: "u1"}, err})
	assert.Equal(t, []interface{}{"msg", err}, args, "the person is not forwarded as an argument")
}

func TestNewLogrus(t *testing.T) {
	conf := core.NewConfig()

	conf.Debug = true
	l := NewLogrus(conf)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	conf.Debug = false
	l = NewLogrus(conf)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

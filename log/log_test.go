package log

import (
	"bytes"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newCapturingLogger(minLevel Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := &Logger{std: log.New(&buf, "", 0), min: minLevel, component: "test"}
	return l, &buf
}

func TestLogLevelFiltersBelowMinimum(t *testing.T) {
	l, buf := newCapturingLogger(LevelWarn)
	l.Debugf("should not appear")
	l.Infof("should not appear either")
	require.Empty(t, buf.String())

	l.Warnf("threshold hit")
	require.Contains(t, buf.String(), "[WARN]")
	require.Contains(t, buf.String(), "threshold hit")
}

func TestLogIncludesComponentPrefix(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	l.Infof("hello %s", "world")
	require.Contains(t, buf.String(), "[test]")
	require.Contains(t, buf.String(), "hello world")
}

func TestWithNestsComponentPath(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	nested := l.With("discovery")
	nested.Infof("listening")
	require.Contains(t, buf.String(), "[test/discovery]")
}

func TestNilLoggerIsANoOp(t *testing.T) {
	var l *Logger
	require.NotPanics(t, func() {
		l.Infof("never written anywhere")
	})
}

func TestNewWritesToRotatingFileWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.log")

	l := New(Config{MinLevel: LevelInfo, Component: "node", FilePath: path})
	l.Infof("started")

	require.FileExists(t, path)
}

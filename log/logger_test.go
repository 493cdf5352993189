package log

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCapture struct {
	bytes.Buffer
}

func newCapturingSubLogger(t *testing.T, name, levels string) (*SubLogger, *testCapture) {
	t.Helper()
	sl, err := NewSubLogger(name)
	require.NoError(t, err, "NewSubLogger must not error")
	c := &testCapture{}
	mu.Lock()
	sl.output = c
	sl.levels = splitLevel(levels)
	mu.Unlock()
	return sl, c
}

func TestGenDefaultSettings(t *testing.T) {
	t.Parallel()
	c := GenDefaultSettings()
	require.NotNil(t, c.Enabled)
	assert.True(t, *c.Enabled)
	assert.Equal(t, "INFO|DEBUG|WARN|ERROR", c.Level)
	assert.Equal(t, "console", c.Output)
	assert.Equal(t, "[INFO]", c.AdvancedSettings.Headers.Info)
}

func TestSplitLevel(t *testing.T) {
	t.Parallel()
	l := splitLevel("INFO|WARN")
	assert.True(t, l.Info)
	assert.True(t, l.Warn)
	assert.False(t, l.Debug)
	assert.False(t, l.Error)
}

func TestNewSubLogger(t *testing.T) {
	t.Parallel()
	_, err := NewSubLogger("")
	assert.ErrorIs(t, err, errEmptyLoggerName)

	sl, err := NewSubLogger("testnewsublogger")
	require.NoError(t, err)
	assert.Equal(t, "TESTNEWSUBLOGGER", sl.name)

	_, err = NewSubLogger("TESTNEWSUBLOGGER")
	assert.ErrorIs(t, err, errSubLoggerAlreadyFound)
}

func TestSetLevel(t *testing.T) {
	t.Parallel()
	_, err := SetLevel("nonexistent", "INFO")
	assert.ErrorIs(t, err, errSubLoggerNotFound)

	_, err = NewSubLogger("testsetlevel")
	require.NoError(t, err)
	l, err := SetLevel("testsetlevel", "ERROR")
	require.NoError(t, err)
	assert.Equal(t, Levels{Error: true}, l)
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	sl, c := newCapturingSubLogger(t, "testlevelfilter", "WARN|ERROR")
	Infof(sl, "hidden %d", 1)
	Debugln(sl, "hidden")
	Warnf(sl, "shown %d", 2)
	Error(sl, "shown error")

	out := c.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "shown error")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestNilSubLogger(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		Info(nil, "nothing")
		Errorf(nil, "nothing %s", "at all")
		WithFields(nil, map[string]any{"a": 1}).Infof("nothing")
	})
}

func TestWithFieldsPlain(t *testing.T) {
	t.Parallel()
	sl, c := newCapturingSubLogger(t, "testwithfields", "INFO")
	WithFields(sl, map[string]any{"index": 3}).Infof("withdrawal %s", "sent")
	assert.Contains(t, c.String(), "withdrawal sent index=3")
}

func TestStructuredOutput(t *testing.T) {
	t.Parallel()
	fields := &logFields{
		info:             true,
		name:             "WITHDRAW",
		output:           io.Discard,
		logger:           Logger{InfoHeader: "[INFO]", StructuredLogging: true},
		structuredFields: map[string]any{"run": "abc"},
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(fields.structured("[INFO]", "hello"), &decoded))
	assert.Equal(t, "INFO", decoded["level"])
	assert.Equal(t, "WITHDRAW", decoded["sublogger"])
	assert.Equal(t, "hello", decoded["message"])
	assert.Equal(t, "abc", decoded["run"])
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	mw, err := MultiWriter(&a, &b)
	require.NoError(t, err)
	assert.ErrorIs(t, mw.Add(&a), errWriterAlreadyLoaded)
	assert.ErrorIs(t, mw.Add(nil), errWriterIsNil)

	n, err := mw.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "data", a.String())
	assert.Equal(t, "data", b.String())

	require.NoError(t, mw.Remove(&b))
	assert.ErrorIs(t, mw.Remove(&b), errWriterNotFound)
	_, err = mw.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, "data", b.String())
}

func TestGetWriters(t *testing.T) {
	t.Parallel()
	_, err := getWriters(nil)
	assert.ErrorIs(t, err, errSubloggerConfigIsNil)

	_, err = getWriters(&SubLoggerConfig{Output: "printer"})
	assert.ErrorIs(t, err, errUnhandledOutputWriter)

	w, err := getWriters(&SubLoggerConfig{Output: "console|stderr"})
	require.NoError(t, err)
	assert.Len(t, w.(*multiWriter).writers, 2)
}

func TestRotateWrite(t *testing.T) {
	dir := t.TempDir()
	SetLogPath(dir)
	rotate := true
	r := &Rotate{FileName: "test.log", Rotate: &rotate, MaxSize: 1}

	n, err := r.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = r.Write(make([]byte, megabyte+1))
	assert.ErrorIs(t, err, errExceedsMaxFileSize)

	_, err = r.Write(make([]byte, megabyte-1))
	require.NoError(t, err, "write exceeding remaining size must rotate")
	require.NoError(t, r.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "rotation should keep the previous file")

	_, err = os.Stat(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
}

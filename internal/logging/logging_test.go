package logging

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("bogus"))
}

func TestLineFormatter(t *testing.T) {
	e := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "page repaired",
		Data:    logrus.Fields{"page": 3, "algorithm": "crc32c"},
	}
	out, err := (&LineFormatter{}).Format(e)
	require.NoError(t, err)
	assert.Equal(t, "[03:04:05 UTC 2024/01/02] [WARN] page repaired algorithm=crc32c page=3\n", string(out))
}

func TestInitJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "idb.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Path: path}))
	l := Logger()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.WithField("path", "t1.ibd").Info("opened")
	assert.Contains(t, buf.String(), `"path":"t1.ibd"`)
}

func TestOr(t *testing.T) {
	custom := logrus.New()
	assert.Same(t, custom, Or(custom))
	assert.NotNil(t, Or(nil))
}

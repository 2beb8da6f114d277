package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDir(t *testing.T) {
	t.Setenv(EnvLogDir, "")
	assert.Equal(t, "var/log", ResolveDir("var/log"))
	assert.Equal(t, filepath.Join(".", "logs"), ResolveDir(""))

	t.Setenv(EnvLogDir, "/tmp/override")
	assert.Equal(t, "/tmp/override", ResolveDir("var/log"))
}

func TestWriterRollsDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "api")
	require.NoError(t, err)

	day := time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "api_2025-05-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "api_2025-05-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestNewZapLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLogDir, "")
	logger, err := NewZapLogger(Options{Dir: dir, App: "admin"})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, DailyFilename("admin", time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siocraft/finance-tracker-api/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("defaults to info with nested formatter", func(t *testing.T) {
		l, err := New(config.LogConfig{})
		require.NoError(t, err)
		assert.Equal(t, logrus.InfoLevel, l.GetLevel())
		assert.NotNil(t, l.Formatter)
	})

	t.Run("json format", func(t *testing.T) {
		l, err := New(config.LogConfig{Level: "debug", Format: "json"})
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, l.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(config.LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New(config.LogConfig{Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("writes to rotating file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "app.log")
		l, err := New(config.LogConfig{Format: "json", File: file})
		require.NoError(t, err)

		l.WithField("request_id", "01HZX").Info("hello")

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"request_id":"01HZX"`)
		assert.Contains(t, string(data), `"msg":"hello"`)
	})
}

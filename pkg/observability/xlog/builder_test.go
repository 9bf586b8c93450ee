package xlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// lumberjack 的 millRun goroutine 在 Close 后仍驻留，属上游已知限制
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

func TestBuilder_JSONWithRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New().
		SetOutput(&buf).
		SetFormat("JSON").
		SetLevel(LevelDebug).
		Build()
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	logger.Debug("token acquired",
		slog.String("service", "orders"),
		slog.String("Authorization", "Bearer abc"),
		slog.String("client_secret", "s3cr3t"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "token acquired", entry["msg"])
	assert.Equal(t, "orders", entry["service"])
	assert.Equal(t, RedactedValue, entry["Authorization"])
	assert.Equal(t, RedactedValue, entry["client_secret"])
	assert.NotContains(t, buf.String(), "s3cr3t")
}

func TestBuilder_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	b := New().SetOutput(&buf).SetLevelString("warn")
	logger, _, err := b.Build()
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	b.LevelVar().Set(slog.LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := New().SetFormat("xml").Build()
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = New().SetLevelString("verbose").SetFormat("xml").Build()
	assert.ErrorIs(t, err, ErrUnknownLevel, "first error wins")

	_, _, err = New().SetRotation(" ", RotationConfig{}).Build()
	assert.ErrorIs(t, err, ErrEmptyFilename)
}

func TestBuilder_ReplaceAttrChain(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New().
		SetOutput(&buf).
		SetRedactKeys().
		SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "password" {
				a.Value = slog.StringValue("custom")
			}
			return a
		}).
		Build()
	require.NoError(t, err)

	logger.Info("login", slog.String("password", "hunter2"))
	assert.Contains(t, buf.String(), "password=custom")
}

func TestFromConfig_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup, err := FromConfig(Config{
		Level:  "info",
		Format: "text",
		File:   path,
		Rotation: RotationConfig{
			MaxSizeMB: 1,
		},
	}).Build()
	require.NoError(t, err)

	logger.Info("written to file", slog.String("access_token", "xyz"))
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "xyz")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, LevelWarn, l)
	assert.Equal(t, "WARN", l.String())
	assert.Error(t, l.UnmarshalText([]byte("loud")))
}

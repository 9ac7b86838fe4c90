package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/identity"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	level := logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetOutput(os.Stderr)
	})
}

func TestSetup(t *testing.T) {
	restoreLogger(t)

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "text info", opts: Options{Level: "info", Format: FormatText}},
		{name: "json upper-case level", opts: Options{Level: "DEBUG", Format: FormatJSON}},
		{name: "default format", opts: Options{Level: "warn"}},
		{name: "bad level", opts: Options{Level: "loud"}, wantErr: true},
		{name: "bad format", opts: Options{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closer, err := Setup(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, closer.Close())
		})
	}
}

func TestSetupWritesToFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "mpid.log")

	closer, err := Setup(Options{Level: "info", Format: FormatJSON, File: path})
	require.NoError(t, err)
	NewLogger("logging", "TestSetupWritesToFile").WithID("account", identity.ID{0xAB}).Info("written")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "written", entry["msg"])
	assert.Equal(t, "logging", entry["package"])
	assert.Equal(t, identity.ID{0xAB}.Short(), entry["account"])
}

func TestLoggerHelperFields(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.WarnLevel)

	NewLogger("vault", "Vault.Handle").
		WithField("verb", "Put").
		WithFields(PreviewFields([]byte{1, 2}, "payload")).
		WithError(errors.New("boom"), "store").
		Warn("failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "vault", entry["package"])
	assert.Equal(t, "Vault.Handle", entry["function"])
	assert.Equal(t, "Put", entry["verb"])
	assert.Equal(t, "0102", entry["payload_preview"])
	assert.Equal(t, float64(2), entry["payload_size"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "store", entry["operation"])
	assert.Equal(t, "warning", entry["level"])
}

func TestPreviewFields(t *testing.T) {
	assert.Equal(t, logrus.Fields{"body_preview": "nil", "body_size": 0}, PreviewFields(nil, "body"))
	assert.Equal(t, logrus.Fields{"body_preview": "0102", "body_size": 2}, PreviewFields([]byte{1, 2}, "body"))
	assert.Equal(t,
		logrus.Fields{"body_preview": "0001020304050607...", "body_size": 10},
		PreviewFields([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, "body"))
}

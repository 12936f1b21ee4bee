package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "default", level: "", want: zapcore.DebugLevel},
		{name: "info", level: "info", want: zapcore.InfoLevel},
		{name: "warn", level: "warn", want: zapcore.WarnLevel},
		{name: "warning alias", level: "Warning", want: zapcore.WarnLevel},
		{name: "error", level: " ERROR ", want: zapcore.ErrorLevel},
		{name: "unknown", level: "chatty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(WithLevel(tt.level), WithFields(map[string]any{"app": "snipshare"}))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_ReleaseDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	log, err := New()
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_JSONRecordCarriesDomainFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(
		WithEncoding(EncodingJSON),
		WithOutput(path),
		WithName("snipshare"),
		WithFields(map[string]any{"version": "1.2.3"}),
	)
	require.NoError(t, err)

	log.Info("session updated", RequestID("req-1"), SessionID("Ab12Cd"), Revision(4), EntityID("image", "Zz99Yy"))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &record))

	assert.Equal(t, "snipshare", record["logger"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, "req-1", record[KeyRequestID])
	assert.Equal(t, "Ab12Cd", record[KeySessionID])
	assert.Equal(t, "Zz99Yy", record[KeyImageID])
	assert.InDelta(t, 4, record[KeyRevision], 0)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(WithLevel("chatty"))
	})
}

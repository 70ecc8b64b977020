package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l := SetupWriter(&buf, slog.LevelInfo, true)
	WithCampaign(l, "alpha", "europa").Info("world step", "step", 3)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "world step", rec["msg"])
	assert.Equal(t, "alpha", rec["campaign"])
	assert.Equal(t, "europa", rec["seed"])
	assert.Equal(t, float64(3), rec["step"])
	assert.Same(t, l, slog.Default())
}

func TestSetupText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l := SetupWriter(&buf, slog.LevelDebug, false)
	l.Debug("campaign saved", "campaign", "alpha")
	assert.Contains(t, buf.String(), "msg=\"campaign saved\"")
	assert.Contains(t, buf.String(), "campaign=alpha")
}

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Output: &buf, Environment: "production"})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	log.Info("listing sold", "listing_id", "l-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "listing sold", line["msg"])
	assert.Equal(t, "cardshow", line["service"])
	assert.Equal(t, "l-1", line["listing_id"])
}

func TestInitDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Output: &buf, Development: true})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	log.Debug("psd decoded", "layers", 12)

	assert.Contains(t, buf.String(), "psd decoded")
	assert.Contains(t, buf.String(), "layers=12")
}

package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, "debug", "text", "tanishuv_bot", false)
	l.Info("привет", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "привет")
	assert.Contains(t, out, "component=tanishuv_bot")
	assert.Contains(t, out, "key=value")
}

func TestBuildJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, "info", "json", "worker", false)
	l.Info("sweep done", "expired", 3)

	out := buf.String()
	assert.Contains(t, out, `"msg":"sweep done"`)
	assert.Contains(t, out, `"component":"worker"`)
	assert.Contains(t, out, `"expired":3`)
}

func TestBuildLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, "error", "text", "", false)
	l.Info("quiet")
	l.Error("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestBuildUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, "chatty", "text", "", false)
	l.Debug("hidden")
	l.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestLReturnsNonNil(t *testing.T) {
	assert.NotNil(t, L())
}

package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoWritesMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	Info("block allocated", KeyGlobalBlock, 42, KeyWorkerIndex, 1)

	out := buf.String()
	assert.Contains(t, out, "block allocated")
	assert.Contains(t, out, "global_block=42")
	assert.Contains(t, out, "worker=1")
}

func TestDebugSuppressedAboveLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	Debug("should not appear")
	assert.Empty(t, buf.String())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestContextFieldsInjected(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)

	ctx := WithContext(context.Background(), &LogContext{
		Component: "Worker",
		NodeID:    3,
	})
	InfoCtx(ctx, "serving request")

	out := buf.String()
	assert.Contains(t, out, "[Worker]")
	assert.Contains(t, out, "node_id=3")
}

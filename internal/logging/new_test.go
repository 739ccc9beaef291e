package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "info", FormatText)
		require.NoError(t, err)
		l.Debug(ctx, "hidden")
		l.Info(ctx, "shown", "k", "v")
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "k=v")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "debug", FormatJSON)
		require.NoError(t, err)
		l.Debug(ctx, "dbg", "n", 1)
		var m map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
		assert.Equal(t, "dbg", m["msg"])
		assert.Equal(t, "DEBUG", m["level"])
	})

	t.Run("zap", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "warn", FormatZap)
		require.NoError(t, err)
		l.Info(ctx, "hidden")
		l.With("tab", 3).Warn(ctx, "careful", "frame", 0)
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
		assert.Equal(t, "careful", m["msg"])
		assert.Equal(t, "warn", m["level"])
		assert.EqualValues(t, 3, m["tab"])
		assert.EqualValues(t, 0, m["frame"])
	})
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", FormatText)
	require.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded")
	assert.NotNil(t, l.With("a", 1))
}

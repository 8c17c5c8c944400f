package notify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var n Notifier = LogNotifier{}
	require.NoError(t, n.Notify("winchord", "Window 1 assigned: Editor"))
	require.NoError(t, n.Close())

	out := buf.String()
	assert.Contains(t, out, "title=winchord")
	assert.Contains(t, out, `message="Window 1 assigned: Editor"`)
}

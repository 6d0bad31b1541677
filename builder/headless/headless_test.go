package headless

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopWithoutStart(t *testing.T) {
	o := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, o.Started())
	o.Stop()
	o.Stop()
	assert.False(t, o.Started())
}

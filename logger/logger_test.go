package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}

func TestNew_ReplacesGlobal(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		l, err := New(lvl, true)
		require.NoError(t, err, lvl)
		assert.Same(t, l, zap.L())
	}
}

package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsLoggerForKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		require.NotNil(t, New(level))
	}
}

func TestNew_FallsBackOnUnknownLevel(t *testing.T) {
	log := New("not-a-level")
	require.NotNil(t, log)
	log.Info("fallback logger works")
}

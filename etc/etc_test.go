package etc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFreshIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewFreshID()
		assert.Len(t, id, 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestNewLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.log")

	logger, closer, err := NewLogger("debug", path)
	require.NoError(t, err)
	logger.Debug("hear", "txt", "hallo")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hear")
	assert.Contains(t, string(data), "txt=hallo")
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	_, _, err := NewLogger("loud", "")
	assert.Error(t, err)
}

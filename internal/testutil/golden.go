package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv names the environment variable that rewrites golden files
// instead of comparing against them.
const UpdateGoldenEnv = "TASKMAN_UPDATE_GOLDEN"

// Golden compares rendered output against testdata/<name>.golden.
func Golden(t testing.TB, name string, got []byte) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(UpdateGoldenEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, got, 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoErrorf(t, err, "read %s (set %s=1 to create it)", path, UpdateGoldenEnv)

	// checkouts on Windows may carry CRLF
	want = bytes.ReplaceAll(want, []byte("\r\n"), []byte("\n"))
	assert.Equal(t, string(want), string(got), "output mismatch for %s", name)
}

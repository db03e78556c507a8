package watchlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "absent.yaml"), zerolog.Nop())

	wl, err := svc.Load()
	require.NoError(t, err)

	assert.Equal(t, defaultSymbols, wl.Symbols)
	assert.Equal(t, WindowDefault, wl.DefaultWindow)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeFile(t, "symbols:\n  - TSLA\n  - NVDA\ndefault_window: 30\n")
	svc := NewService(path, zerolog.Nop())

	wl, err := svc.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "NVDA"}, wl.Symbols)
	assert.Equal(t, 30, wl.DefaultWindow)
}

func TestLoad_EmptyFieldsFallBack(t *testing.T) {
	path := writeFile(t, "symbols: []\n")
	svc := NewService(path, zerolog.Nop())

	wl, err := svc.Load()
	require.NoError(t, err)

	assert.Equal(t, defaultSymbols, wl.Symbols)
	assert.Equal(t, WindowDefault, wl.DefaultWindow)
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	path := writeFile(t, "symbols: [unterminated\n")
	svc := NewService(path, zerolog.Nop())

	_, err := svc.Load()
	assert.Error(t, err)
}

func TestSymbols_FallsBackOnError(t *testing.T) {
	path := writeFile(t, "symbols: [unterminated\n")
	svc := NewService(path, zerolog.Nop())

	assert.Equal(t, defaultSymbols, svc.Symbols())
}

// Package watchlist loads the set of selectable ticker symbols from a
// YAML file. The list feeds the symbol picker in the UI and the history
// sync job; a missing file falls back to a built-in default set.
package watchlist

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// UI slider bounds for the moving-average window.
const (
	WindowMin     = 5
	WindowMax     = 60
	WindowStep    = 5
	WindowDefault = 20
)

// defaultSymbols is used when no watchlist file exists.
var defaultSymbols = []string{"AAPL", "MSFT", "GOOG", "AMZN", "IBM"}

// Watchlist is the parsed watchlist file.
type Watchlist struct {
	Symbols       []string `yaml:"symbols"`
	DefaultWindow int      `yaml:"default_window"`
}

// Service loads and serves the watchlist. The file is re-read on every
// call so edits take effect without a restart.
type Service struct {
	path string
	log  zerolog.Logger
}

// NewService creates a new watchlist service.
func NewService(path string, log zerolog.Logger) *Service {
	return &Service{
		path: path,
		log:  log.With().Str("service", "watchlist").Logger(),
	}
}

// Load reads the watchlist file. A missing file yields the built-in
// defaults; a malformed file is an error so a typo does not silently
// erase the configured symbols.
func (s *Service) Load() (Watchlist, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Debug().Str("path", s.path).Msg("No watchlist file, using defaults")
		return defaultWatchlist(), nil
	}
	if err != nil {
		return Watchlist{}, fmt.Errorf("failed to read watchlist %s: %w", s.path, err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return Watchlist{}, fmt.Errorf("failed to parse watchlist %s: %w", s.path, err)
	}

	if len(wl.Symbols) == 0 {
		wl.Symbols = defaultSymbols
	}
	if wl.DefaultWindow <= 0 {
		wl.DefaultWindow = WindowDefault
	}

	return wl, nil
}

// Symbols returns the watchlist symbols, falling back to the defaults
// when the file cannot be loaded. Satisfies history.SymbolLister.
func (s *Service) Symbols() []string {
	wl, err := s.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("Falling back to default symbols")
		return defaultSymbols
	}
	return wl.Symbols
}

func defaultWatchlist() Watchlist {
	return Watchlist{
		Symbols:       defaultSymbols,
		DefaultWindow: WindowDefault,
	}
}

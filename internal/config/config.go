package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks errors caused by an invalid tier, symbol pool or
// setting. Callers test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// Difficulty is a named tier with a fixed pair count and time limit.
type Difficulty struct {
	Name      string
	PairCount int
	TimeLimit int // seconds
}

// DefaultSymbols is the built-in symbol pool. Tiers take their symbols from
// the front of the pool.
var DefaultSymbols = []string{"🌸", "🍜", "🗼", "🎎", "🎌", "🍱", "🐠", "🗻", "🎭", "🍵", "⛩️", "🏯"}

func defaultDifficulties() []Difficulty {
	return []Difficulty{
		{Name: "easy", PairCount: 6, TimeLimit: 60},
		{Name: "medium", PairCount: 8, TimeLimit: 90},
		{Name: "hard", PairCount: 12, TimeLimit: 120},
	}
}

// Store backends understood by StoreKind.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	Difficulties      []Difficulty
	Symbols           []string
	DefaultDifficulty string
	StoreKind         string
	StorePath         string
	LogFile           string
	LogLevel          string
	Seed              int64 // 0 picks a time-based seed
}

// Default returns the built-in configuration without consulting the
// environment.
func Default() Config {
	symbols := make([]string, len(DefaultSymbols))
	copy(symbols, DefaultSymbols)
	return Config{
		Difficulties:      defaultDifficulties(),
		Symbols:           symbols,
		DefaultDifficulty: "easy",
		StoreKind:         StoreFile,
		LogLevel:          "info",
	}
}

// Load reads an optional .env file and MEMGAME_* environment variables on
// top of Default.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	cfg.DefaultDifficulty = getEnv("MEMGAME_DIFFICULTY", cfg.DefaultDifficulty)
	cfg.StoreKind = getEnv("MEMGAME_STORE", cfg.StoreKind)
	cfg.StorePath = getEnv("MEMGAME_STORE_PATH", "")
	cfg.LogFile = getEnv("MEMGAME_LOG_FILE", "")
	cfg.LogLevel = getEnv("MEMGAME_LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("MEMGAME_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: MEMGAME_SEED %q: %v", ErrConfiguration, v, err)
		}
		cfg.Seed = seed
	}

	if cfg.StorePath == "" {
		path, err := DefaultStorePath(cfg.StoreKind)
		if err != nil {
			return Config{}, err
		}
		cfg.StorePath = path
	}

	return cfg, nil
}

// DefaultStorePath places the store under ~/.config/go-pairs.
func DefaultStorePath(kind string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	name := "store.json"
	if kind == StoreSQLite {
		name = "store.db"
	}
	return filepath.Join(homeDir, ".config", "go-pairs", name), nil
}

// Difficulty looks up a tier by name.
func (c Config) Difficulty(name string) (Difficulty, error) {
	for _, d := range c.Difficulties {
		if d.Name == name {
			return d, nil
		}
	}
	return Difficulty{}, fmt.Errorf("%w: unknown difficulty %q", ErrConfiguration, name)
}

// Tiers returns the tier names in configuration order.
func (c Config) Tiers() []string {
	names := make([]string, 0, len(c.Difficulties))
	for _, d := range c.Difficulties {
		names = append(names, d.Name)
	}
	return names
}

// NextTier returns the tier after name, wrapping around.
func (c Config) NextTier(name string) string {
	tiers := c.Tiers()
	if len(tiers) == 0 {
		return name
	}
	for i, t := range tiers {
		if t == name {
			return tiers[(i+1)%len(tiers)]
		}
	}
	return tiers[0]
}

// WithTimeLimit returns a copy of c with every tier's time limit replaced.
func (c Config) WithTimeLimit(seconds int) Config {
	tiers := make([]Difficulty, len(c.Difficulties))
	copy(tiers, c.Difficulties)
	for i := range tiers {
		tiers[i].TimeLimit = seconds
	}
	c.Difficulties = tiers
	return c
}

// Validate checks every tier against the symbol pool and the store settings.
func (c Config) Validate() error {
	if len(c.Difficulties) == 0 {
		return fmt.Errorf("%w: no difficulty tiers", ErrConfiguration)
	}
	seen := make(map[string]bool, len(c.Difficulties))
	for _, d := range c.Difficulties {
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate difficulty %q", ErrConfiguration, d.Name)
		}
		seen[d.Name] = true
		if d.PairCount < 1 {
			return fmt.Errorf("%w: difficulty %q needs at least one pair", ErrConfiguration, d.Name)
		}
		if d.PairCount > len(c.Symbols) {
			return fmt.Errorf("%w: difficulty %q needs %d symbols, pool has %d",
				ErrConfiguration, d.Name, d.PairCount, len(c.Symbols))
		}
		if d.TimeLimit < 1 {
			return fmt.Errorf("%w: difficulty %q has no time limit", ErrConfiguration, d.Name)
		}
	}
	if _, err := c.Difficulty(c.DefaultDifficulty); err != nil {
		return err
	}
	switch c.StoreKind {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrConfiguration, c.StoreKind)
	}
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

package highscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go-pairs/internal/kvstore"

	"github.com/rs/zerolog"
)

// Key is the fixed key the table is stored under.
const Key = "memoryGameHighScores"

// ErrCorrupt is logged when stored data cannot be read. It is never returned
// from Load.
var ErrCorrupt = errors.New("high score data corrupt")

// Store persists the high score table through a kvstore.Store.
type Store struct {
	mu    sync.Mutex
	kv    kvstore.Store
	tiers []string
	log   zerolog.Logger
}

func NewStore(kv kvstore.Store, tiers []string, log zerolog.Logger) *Store {
	return &Store{
		kv:    kv,
		tiers: tiers,
		log:   log.With().Str("component", "highscore").Logger(),
	}
}

// Load returns the persisted table. Absent, unreadable or corrupt data yields
// an empty table for every tier.
func (s *Store) Load(ctx context.Context) Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("treating high scores as empty")
		return NewTable(s.tiers)
	}
	return table
}

// Record adds rec to tier, keeps the best MaxEntries and persists the whole
// table. It returns the rank of rec (0 is the high score) or -1 if rec did not
// make the table. Nothing is written when the backend fails to read.
func (s *Store) Record(ctx context.Context, tier string, rec Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.read(ctx)
	if err != nil {
		return -1, fmt.Errorf("could not read high scores: %w", err)
	}
	rank := table.insert(tier, rec)

	raw, err := json.Marshal(table)
	if err != nil {
		return rank, fmt.Errorf("could not encode high scores: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(raw)); err != nil {
		return rank, fmt.Errorf("could not save high scores: %w", err)
	}

	s.log.Debug().Str("tier", tier).Int("score", rec.Score).Int("rank", rank).Msg("high score recorded")
	return rank, nil
}

// read fetches the stored table. Undecodable data is logged as ErrCorrupt and
// read as empty; any other backend failure is returned.
func (s *Store) read(ctx context.Context) (Table, error) {
	table := NewTable(s.tiers)

	raw, ok, err := s.kv.Get(ctx, Key)
	if errors.Is(err, kvstore.ErrCorrupt) {
		s.log.Warn().Err(fmt.Errorf("%w: %w", ErrCorrupt, err)).Msg("treating high scores as empty")
		return table, nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return table, nil
	}

	var stored Table
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Warn().Err(fmt.Errorf("%w: %w", ErrCorrupt, err)).Msg("treating high scores as empty")
		return table, nil
	}

	for tier, entries := range stored {
		if entries == nil {
			entries = []Record{}
		}
		table[tier] = entries
	}
	return table, nil
}

package game

import (
	"context"

	"go-pairs/internal/board"
	"go-pairs/internal/config"
	"go-pairs/internal/highscore"
	"go-pairs/internal/state"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listener receives every event a session's games emit.
type Listener func(state.Event)

// Session owns the active game. Starting a game replaces the previous one
// entirely and bumps the generation, which invalidates every task the
// previous game scheduled.
type Session struct {
	Config      config.Config
	Difficulty  config.Difficulty
	CurrentGame *Game
	Scores      *highscore.Store
	Listener    Listener

	// Rank of the last won game in its tier's table, -1 if it did not place.
	LastRank int

	scheduler  Scheduler
	rng        board.Source
	generation uint64
	log        zerolog.Logger
}

// NewSession validates cfg and selects its default difficulty. No game runs
// until Start or Reset.
func NewSession(cfg config.Config, scores *highscore.Store, scheduler Scheduler, rng board.Source, log zerolog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	difficulty, err := cfg.Difficulty(cfg.DefaultDifficulty)
	if err != nil {
		return nil, err
	}

	return &Session{
		Config:     cfg,
		Difficulty: difficulty,
		Scores:     scores,
		LastRank:   -1,
		scheduler:  scheduler,
		rng:        rng,
		log:        log.With().Str("component", "session").Logger(),
	}, nil
}

// Generation is the counter of the active game.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Start discards any running game and starts a new one at the named
// difficulty. On error the running game is left untouched.
func (s *Session) Start(name string) error {
	difficulty, err := s.Config.Difficulty(name)
	if err != nil {
		return err
	}
	cards, err := board.Generate(difficulty.PairCount, s.Config.Symbols, s.rng)
	if err != nil {
		return err
	}

	s.generation++
	s.Difficulty = difficulty
	s.LastRank = -1

	g := NewGame(uuid.NewString(), cards, difficulty, s.generation)
	g.Init()
	s.CurrentGame = g

	s.log.Info().
		Str("game_id", g.ID).
		Str("difficulty", difficulty.Name).
		Int("pairs", difficulty.PairCount).
		Uint64("generation", s.generation).
		Msg("game started")

	s.scheduler.Schedule(TickInterval, Task{Kind: TaskTick, Generation: s.generation})
	s.dispatch()
	return nil
}

// Reset restarts at the selected difficulty. It is legal in any state.
func (s *Session) Reset() error {
	return s.Start(s.Difficulty.Name)
}

// SelectDifficulty changes the tier used by the next Reset. The running game
// is discarded and its pending tasks become stale.
func (s *Session) SelectDifficulty(name string) error {
	difficulty, err := s.Config.Difficulty(name)
	if err != nil {
		return err
	}
	s.generation++
	s.Difficulty = difficulty
	s.CurrentGame = nil
	s.log.Debug().Str("difficulty", name).Msg("difficulty selected")
	return nil
}

// Flip forwards a card click. Clicks that the rules reject are ignored.
func (s *Session) Flip(pos int) {
	g := s.CurrentGame
	if g == nil {
		return
	}
	wasWon := g.State.Win

	if g.HandleFlip(pos) {
		s.scheduler.Schedule(ResolveDelay, Task{Kind: TaskResolve, Generation: s.generation})
	}
	if !wasWon && g.State.Win {
		s.recordWin(g)
	}
	s.dispatch()
}

// HandleTask runs a task the scheduler handed back. Tasks not tagged with the
// current game's generation, and ticks for a finished game, are dropped.
func (s *Session) HandleTask(t Task) {
	g := s.CurrentGame
	if g == nil || t.Generation != g.State.Generation {
		s.log.Debug().
			Stringer("task", t.Kind).
			Uint64("task_generation", t.Generation).
			Uint64("generation", s.generation).
			Msg("stale task dropped")
		return
	}

	switch t.Kind {
	case TaskTick:
		if !g.State.IsPlaying() {
			return
		}
		g.HandleTick()
		if g.State.Loss {
			s.log.Info().Str("game_id", g.ID).Int("moves", g.State.Moves).Msg("game lost")
		}
		if g.State.IsPlaying() {
			s.scheduler.Schedule(TickInterval, Task{Kind: TaskTick, Generation: s.generation})
		}
	case TaskResolve:
		g.Resolve()
	}
	s.dispatch()
}

// Status is the lifecycle state of the current game, or NotStarted when no
// game is running.
func (s *Session) Status() string {
	if s.CurrentGame == nil {
		return state.NotStarted
	}
	switch {
	case s.CurrentGame.State.Win:
		return state.Won
	case s.CurrentGame.State.Loss:
		return state.Lost
	case s.CurrentGame.State.Started:
		return state.Playing
	}
	return state.NotStarted
}

func (s *Session) recordWin(g *Game) {
	st := g.State
	s.log.Info().
		Str("game_id", g.ID).
		Int("score", st.FinalScore).
		Int("moves", st.Moves).
		Int("time_remaining", st.TimeRemaining).
		Msg("game won")

	if s.Scores == nil {
		return
	}
	rank, err := s.Scores.Record(context.Background(), g.Difficulty.Name, highscore.Record{
		Score:         st.FinalScore,
		Moves:         st.Moves,
		TimeRemaining: st.TimeRemaining,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("game_id", g.ID).Msg("could not record high score")
		return
	}
	s.LastRank = rank
}

func (s *Session) dispatch() {
	if s.CurrentGame == nil {
		return
	}
	for _, e := range s.CurrentGame.State.TakeEvents() {
		if s.Listener != nil {
			s.Listener(e)
		}
	}
}

package game

import (
	"context"

	"go-pairs/internal/board"
	"go-pairs/internal/config"
	"go-pairs/internal/state"
)

// Game encapsulates one game's logic, independent of the UI.
type Game struct {
	ID         string
	Difficulty config.Difficulty
	State      *state.State
}

// NewGame builds a game that has not started yet.
func NewGame(id string, cards []board.Card, difficulty config.Difficulty, generation uint64) *Game {
	return &Game{
		ID:         id,
		Difficulty: difficulty,
		State:      state.NewState(cards, difficulty.TimeLimit, generation),
	}
}

// Init starts the game.
func (g *Game) Init() {
	_ = g.State.FSM.Event(context.Background(), "startGame")
}

// HandleTick processes a timer tick.
func (g *Game) HandleTick() {
	if !g.State.IsPlaying() {
		return
	}
	_ = g.State.FSM.Event(context.Background(), "tick")
}

// HandleFlip flips the card at pos. Invalid flips are ignored. It reports
// whether the flip completed a pair that now needs resolution.
func (g *Game) HandleFlip(pos int) bool {
	if !g.State.IsPlaying() {
		return false
	}
	before := g.State.Moves
	_ = g.State.FSM.Event(context.Background(), "flip", pos)
	return g.State.Moves != before && g.State.AwaitingResolution()
}

// Resolve hides an unmatched pair.
func (g *Game) Resolve() {
	g.State.Resolve()
}

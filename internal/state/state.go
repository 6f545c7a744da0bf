package state

import (
	"context"

	"go-pairs/internal/board"
	"go-pairs/internal/scoring"

	"github.com/looplab/fsm"
)

// Lifecycle states. The remaining fsm states are transient steps of a flip or
// tick and are never observed between calls.
const (
	NotStarted = "notStarted"
	Playing    = "playing"
	Won        = "won"
	Lost       = "lost"
)

type State struct {
	Cards         []board.Card
	Flipped       []int // at most two, in flip order
	Solved        []int
	Moves         int
	TimeLimit     int // seconds
	TimeRemaining int
	Started       bool
	Over          bool
	Win           bool
	Loss          bool
	FinalScore    int
	Generation    uint64 // game generation this state belongs to
	FSM           *fsm.FSM

	outbox []Event
}

func NewState(cards []board.Card, timeLimit int, generation uint64) *State {
	s := &State{
		Cards:         cards,
		TimeLimit:     timeLimit,
		TimeRemaining: timeLimit,
		Generation:    generation,
	}

	s.FSM = fsm.NewFSM(
		NotStarted,
		getStateTransitions(),
		getStateCallbacks(s),
	)

	return s
}

// Resolve turns back every flipped card that is not solved and clears the
// pending pair. It is legal in any state; after a winning match it changes
// nothing visible.
func (s *State) Resolve() {
	if len(s.Flipped) == 0 {
		return
	}
	var hidden []int
	for _, pos := range s.Flipped {
		if !s.IsSolved(pos) {
			hidden = append(hidden, pos)
		}
	}
	s.Flipped = nil
	if len(hidden) > 0 {
		s.emit(Event{Kind: CardsUnflipped, Positions: hidden})
	}
}

// TakeEvents returns and clears the events emitted since the last call.
func (s *State) TakeEvents() []Event {
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *State) emit(e Event) {
	s.outbox = append(s.outbox, e)
}

func getStateTransitions() []fsm.EventDesc {
	return fsm.Events{
		{Name: "startGame", Src: []string{NotStarted}, Dst: Playing},

		// Flip processing
		{Name: "flip", Src: []string{Playing}, Dst: "flipping"},
		{Name: "ignore", Src: []string{"flipping"}, Dst: Playing},
		{Name: "flipped", Src: []string{"flipping"}, Dst: Playing},
		{Name: "compare", Src: []string{"flipping"}, Dst: "comparing"},
		{Name: "mismatch", Src: []string{"comparing"}, Dst: Playing},
		{Name: "match", Src: []string{"comparing"}, Dst: "matched"},
		{Name: "continue", Src: []string{"matched"}, Dst: Playing},
		{Name: "allSolved", Src: []string{"matched"}, Dst: Won},

		// Timer
		{Name: "tick", Src: []string{Playing}, Dst: "timeCheck"},
		{Name: "timePassed", Src: []string{"timeCheck"}, Dst: Playing},
		{Name: "timeExpired", Src: []string{"timeCheck"}, Dst: Lost},
	}
}

func getStateCallbacks(s *State) map[string]fsm.Callback {
	return fsm.Callbacks{
		"enter_" + Playing: func(ctx context.Context, e *fsm.Event) {
			if e.Event != "startGame" {
				return
			}
			s.Flipped = nil
			s.Solved = nil
			s.Moves = 0
			s.TimeRemaining = s.TimeLimit
			s.Started = true
			s.Over = false
			s.emit(Event{Kind: GameStarted, TimeRemaining: s.TimeRemaining})
			s.emit(Event{Kind: TimeUpdated, TimeRemaining: s.TimeRemaining})
			s.emit(Event{Kind: MovesUpdated, Moves: s.Moves})
		},
		"enter_flipping": func(ctx context.Context, e *fsm.Event) {
			pos := -1
			if len(e.Args) > 0 {
				if p, ok := e.Args[0].(int); ok {
					pos = p
				}
			}

			if !s.CanFlip(pos) {
				e.FSM.Event(ctx, "ignore")
				return
			}

			s.Flipped = append(s.Flipped, pos)
			s.Moves++
			s.emit(Event{Kind: CardFlipped, Positions: []int{pos}, Symbol: s.Cards[pos].Symbol})
			s.emit(Event{Kind: MovesUpdated, Moves: s.Moves})

			if len(s.Flipped) == 2 {
				e.FSM.Event(ctx, "compare")
				return
			}
			e.FSM.Event(ctx, "flipped")
		},
		"enter_comparing": func(ctx context.Context, e *fsm.Event) {
			first, second := s.Cards[s.Flipped[0]], s.Cards[s.Flipped[1]]
			if first.Symbol == second.Symbol {
				e.FSM.Event(ctx, "match")
				return
			}
			e.FSM.Event(ctx, "mismatch")
		},
		"enter_matched": func(ctx context.Context, e *fsm.Event) {
			pair := []int{s.Flipped[0], s.Flipped[1]}
			s.Solved = append(s.Solved, pair...)
			s.emit(Event{Kind: CardsMatched, Positions: pair})

			if s.AllSolved() {
				e.FSM.Event(ctx, "allSolved")
				return
			}
			e.FSM.Event(ctx, "continue")
		},
		"enter_" + Won: func(ctx context.Context, e *fsm.Event) {
			s.Over = true
			s.Win = true
			s.FinalScore = scoring.Calculate(len(s.Solved), s.TimeRemaining, s.Moves)
			s.emit(Event{
				Kind:          GameWon,
				Score:         s.FinalScore,
				Moves:         s.Moves,
				TimeRemaining: s.TimeRemaining,
			})
		},
		"enter_timeCheck": func(ctx context.Context, e *fsm.Event) {
			s.TimeRemaining--
			if s.TimeRemaining <= 0 {
				s.TimeRemaining = 0
				s.emit(Event{Kind: TimeUpdated, TimeRemaining: 0})
				e.FSM.Event(ctx, "timeExpired")
				return
			}
			s.emit(Event{Kind: TimeUpdated, TimeRemaining: s.TimeRemaining})
			e.FSM.Event(ctx, "timePassed")
		},
		"enter_" + Lost: func(ctx context.Context, e *fsm.Event) {
			s.Over = true
			s.Loss = true
			s.emit(Event{Kind: GameLost})
		},
	}
}

package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pairs/internal/config"
	"go-pairs/internal/highscore"
	"go-pairs/internal/kvstore"
	"go-pairs/internal/state"

	"github.com/rs/zerolog"
)

// ManualClock is a Scheduler driven by the test.
type ManualClock struct {
	now     time.Duration
	seq     int
	pending []timedTask
}

type timedTask struct {
	due  time.Duration
	seq  int
	task Task
}

func (c *ManualClock) Schedule(delay time.Duration, t Task) {
	c.pending = append(c.pending, timedTask{due: c.now + delay, seq: c.seq, task: t})
	c.seq++
}

// Advance moves time forward by d and hands every task that falls due to
// sess, earliest first.
func (c *ManualClock) Advance(sess *Session, d time.Duration) {
	target := c.now + d
	for {
		next := -1
		for i, p := range c.pending {
			if p.due > target {
				continue
			}
			if next == -1 || p.due < c.pending[next].due ||
				(p.due == c.pending[next].due && p.seq < c.pending[next].seq) {
				next = i
			}
		}
		if next == -1 {
			break
		}
		p := c.pending[next]
		c.pending = append(c.pending[:next], c.pending[next+1:]...)
		c.now = p.due
		sess.HandleTask(p.task)
	}
	c.now = target
}

// FailingKV refuses every write.
type FailingKV struct{}

func (FailingKV) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (FailingKV) Set(ctx context.Context, key, value string) error {
	return errors.New("read-only")
}

func newTestSession(t *testing.T, kv kvstore.Store) (*Session, *ManualClock, *[]state.Event) {
	t.Helper()
	cfg := config.Default()
	cfg.StoreKind = config.StoreMemory

	clock := &ManualClock{}
	scores := highscore.NewStore(kv, cfg.Tiers(), zerolog.Nop())
	sess, err := NewSession(cfg, scores, clock, identitySource{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	events := &[]state.Event{}
	sess.Listener = func(e state.Event) {
		*events = append(*events, e)
	}
	return sess, clock, events
}

func countKind(events []state.Event, kind state.EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestSession_Init(t *testing.T) {
	sess, _, _ := newTestSession(t, kvstore.NewMemory())

	if sess.CurrentGame != nil {
		t.Error("No game should run before Start")
	}
	if sess.Status() != state.NotStarted {
		t.Errorf("Expected %s, got %s", state.NotStarted, sess.Status())
	}
	if sess.Difficulty.Name != "easy" {
		t.Errorf("Expected easy by default, got %s", sess.Difficulty.Name)
	}

	// Clicks before start are ignored.
	sess.Flip(0)
}

func TestSession_Start(t *testing.T) {
	sess, clock, events := newTestSession(t, kvstore.NewMemory())

	if err := sess.Start("medium"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	g := sess.CurrentGame
	if len(g.State.Cards) != 16 {
		t.Errorf("Expected 16 cards, got %d", len(g.State.Cards))
	}
	if g.State.TimeRemaining != 90 {
		t.Errorf("Expected 90s, got %d", g.State.TimeRemaining)
	}
	if g.ID == "" {
		t.Error("Game should have an id")
	}
	if sess.Status() != state.Playing {
		t.Errorf("Expected %s, got %s", state.Playing, sess.Status())
	}
	if countKind(*events, state.GameStarted) != 1 {
		t.Errorf("Expected one gameStarted event, got %+v", *events)
	}
	if len(clock.pending) != 1 || clock.pending[0].task.Kind != TaskTick {
		t.Errorf("Expected a scheduled tick, got %+v", clock.pending)
	}
}

func TestSession_StartUnknownDifficulty(t *testing.T) {
	sess, _, _ := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")
	before := sess.CurrentGame
	gen := sess.Generation()

	err := sess.Start("nightmare")
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	if sess.CurrentGame != before || sess.Generation() != gen {
		t.Error("A failed start should leave the running game untouched")
	}
}

func TestSession_MismatchUnflipsAfterDelay(t *testing.T) {
	sess, clock, events := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")

	sess.Flip(0)
	sess.Flip(1)
	st := sess.CurrentGame.State

	clock.Advance(sess, ResolveDelay-time.Millisecond)
	if !st.IsFlipped(0) || !st.IsFlipped(1) {
		t.Fatal("Cards should stay flipped until the delay elapses")
	}

	clock.Advance(sess, time.Millisecond)
	if st.IsRevealed(0) || st.IsRevealed(1) {
		t.Error("Mismatched cards should be hidden after the delay")
	}
	if countKind(*events, state.CardsUnflipped) != 1 {
		t.Errorf("Expected one cardsUnflipped event")
	}
}

func TestSession_MatchStaysRevealed(t *testing.T) {
	sess, clock, events := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")

	sess.Flip(0)
	sess.Flip(6)
	st := sess.CurrentGame.State

	if len(st.Solved) != 2 {
		t.Fatalf("Expected 2 solved cards, got %v", st.Solved)
	}
	clock.Advance(sess, ResolveDelay)

	if !st.IsRevealed(0) || !st.IsRevealed(6) {
		t.Error("Matched cards should stay revealed")
	}
	if len(st.Flipped) != 0 {
		t.Errorf("Flipped should be empty after resolution, got %v", st.Flipped)
	}
	if countKind(*events, state.CardsMatched) != 1 || countKind(*events, state.CardsUnflipped) != 0 {
		t.Errorf("Unexpected events %+v", *events)
	}
}

func TestSession_ThirdFlipWaitsForResolution(t *testing.T) {
	sess, clock, _ := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")

	sess.Flip(0)
	sess.Flip(1)
	sess.Flip(2)
	st := sess.CurrentGame.State

	if st.Moves != 2 || st.IsFlipped(2) {
		t.Errorf("Third flip should be ignored, moves=%d flipped=%v", st.Moves, st.Flipped)
	}

	clock.Advance(sess, ResolveDelay)
	sess.Flip(2)
	if st.Moves != 3 || !st.IsFlipped(2) {
		t.Errorf("Flip after resolution should count, moves=%d flipped=%v", st.Moves, st.Flipped)
	}
}

func TestSession_TimerExpires(t *testing.T) {
	sess, clock, events := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")
	sess.Flip(0)

	clock.Advance(sess, 60*time.Second)
	st := sess.CurrentGame.State

	if sess.Status() != state.Lost {
		t.Fatalf("Expected %s, got %s", state.Lost, sess.Status())
	}
	if st.TimeRemaining != 0 {
		t.Errorf("Expected 0s, got %d", st.TimeRemaining)
	}
	if countKind(*events, state.GameLost) != 1 {
		t.Errorf("Expected one gameLost event")
	}
	if countKind(*events, state.GameWon) != 0 {
		t.Errorf("Lost game must not be scored")
	}
	if len(clock.pending) != 0 {
		t.Errorf("Timer should stop after loss, pending %+v", clock.pending)
	}

	moves := st.Moves
	sess.Flip(1)
	clock.Advance(sess, 5*time.Second)
	if st.Moves != moves || st.TimeRemaining != 0 {
		t.Error("Lost game should be frozen")
	}
}

func TestSession_WinRecordsHighScore(t *testing.T) {
	kv := kvstore.NewMemory()
	sess, clock, events := newTestSession(t, kv)
	sess.Start("easy")

	for i := 0; i < 6; i++ {
		sess.Flip(i)
		sess.Flip(i + 6)
		if i < 5 {
			clock.Advance(sess, time.Second)
		}
	}
	st := sess.CurrentGame.State

	if sess.Status() != state.Won {
		t.Fatalf("Expected %s, got %s", state.Won, sess.Status())
	}
	// 12*100 + 55*10 - 12*5
	if st.FinalScore != 1690 {
		t.Errorf("Expected score 1690, got %d", st.FinalScore)
	}
	if countKind(*events, state.GameWon) != 1 {
		t.Error("Expected one gameWon event")
	}
	if sess.LastRank != 0 {
		t.Errorf("Expected rank 0, got %d", sess.LastRank)
	}

	top := sess.Scores.Load(context.Background()).Top("easy", highscore.MaxEntries)
	if len(top) != 1 || top[0].Score != 1690 || top[0].Moves != 12 || top[0].TimeRemaining != 55 {
		t.Errorf("Unexpected high scores %+v", top)
	}

	// The last resolution still runs; the timer is not rescheduled.
	clock.Advance(sess, 5*time.Second)
	if len(st.Flipped) != 0 {
		t.Errorf("Pending resolution should clear flipped, got %v", st.Flipped)
	}
	if st.TimeRemaining != 55 {
		t.Errorf("Time should freeze after a win, got %d", st.TimeRemaining)
	}
	if len(clock.pending) != 0 {
		t.Errorf("No tasks should remain, got %+v", clock.pending)
	}
}

func TestSession_ResetIgnoresStaleResolution(t *testing.T) {
	sess, clock, _ := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")

	sess.Flip(0)
	sess.Flip(1)
	oldGen := sess.Generation()

	if err := sess.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if sess.Generation() != oldGen+1 {
		t.Errorf("Reset should bump the generation")
	}

	st := sess.CurrentGame.State
	if st.Generation != sess.Generation() {
		t.Errorf("Game generation %d should match session generation %d", st.Generation, sess.Generation())
	}
	if st.Moves != 0 || len(st.Flipped) != 0 {
		t.Fatalf("Reset should start fresh, moves=%d flipped=%v", st.Moves, st.Flipped)
	}

	sess.Flip(0)
	clock.Advance(sess, ResolveDelay)

	if !st.IsFlipped(0) {
		t.Error("Stale resolution must not touch the new game")
	}
	// Only the new game's timer ticks.
	if st.TimeRemaining != 59 {
		t.Errorf("Expected 59s after one second, got %d", st.TimeRemaining)
	}
}

func TestSession_SelectDifficulty(t *testing.T) {
	sess, clock, _ := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")

	if err := sess.SelectDifficulty("hard"); err != nil {
		t.Fatalf("SelectDifficulty failed: %v", err)
	}
	if sess.CurrentGame != nil || sess.Status() != state.NotStarted {
		t.Error("Selecting a difficulty should stop the running game")
	}
	sess.Flip(0)
	clock.Advance(sess, 3*time.Second)

	if err := sess.Reset(); err != nil {
		t.Fatal(err)
	}
	if n := len(sess.CurrentGame.State.Cards); n != 24 {
		t.Errorf("Expected 24 cards for hard, got %d", n)
	}
	if sess.CurrentGame.State.TimeRemaining != 120 {
		t.Errorf("Expected 120s, got %d", sess.CurrentGame.State.TimeRemaining)
	}

	if err := sess.SelectDifficulty("bogus"); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	if sess.Difficulty.Name != "hard" || sess.CurrentGame == nil {
		t.Error("A rejected selection should change nothing")
	}
}

func TestSession_Events(t *testing.T) {
	sess, _, events := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")
	*events = nil

	sess.Flip(3)

	if len(*events) != 2 {
		t.Fatalf("Expected 2 events, got %+v", *events)
	}
	flipped := (*events)[0]
	if flipped.Kind != state.CardFlipped || flipped.Positions[0] != 3 || flipped.Symbol != config.DefaultSymbols[3] {
		t.Errorf("Unexpected cardFlipped event %+v", flipped)
	}
	if moves := (*events)[1]; moves.Kind != state.MovesUpdated || moves.Moves != 1 {
		t.Errorf("Unexpected movesUpdated event %+v", moves)
	}
}

func TestSession_ScoreSaveFailure(t *testing.T) {
	sess, _, _ := newTestSession(t, FailingKV{})
	sess.Start("easy")

	for i := 0; i < 6; i++ {
		sess.CurrentGame.Resolve()
		sess.Flip(i)
		sess.Flip(i + 6)
	}

	if sess.Status() != state.Won {
		t.Fatalf("Game should be won despite storage failure, got %s", sess.Status())
	}
	if sess.LastRank != -1 {
		t.Errorf("Expected rank -1 when saving fails, got %d", sess.LastRank)
	}
}

func TestQueue_Drain(t *testing.T) {
	var q Queue
	q.Schedule(time.Second, Task{Kind: TaskTick, Generation: 1})
	q.Schedule(2*time.Second, Task{Kind: TaskResolve, Generation: 1})

	if q.Len() != 2 {
		t.Fatalf("Expected 2 pending, got %d", q.Len())
	}
	pending := q.Drain()
	if pending[0].Task.Kind != TaskTick || pending[1].Delay != 2*time.Second {
		t.Errorf("Unexpected drain order %+v", pending)
	}
	if q.Len() != 0 {
		t.Error("Drain should empty the queue")
	}
}

func TestSession_TaskForOtherGameDropped(t *testing.T) {
	sess, _, events := newTestSession(t, kvstore.NewMemory())
	sess.Start("easy")
	st := sess.CurrentGame.State

	sess.HandleTask(Task{Kind: TaskTick, Generation: st.Generation + 1})
	sess.HandleTask(Task{Kind: TaskTick, Generation: st.Generation - 1})
	if st.TimeRemaining != st.TimeLimit {
		t.Errorf("Ticks for another generation must be dropped, got %ds left", st.TimeRemaining)
	}

	*events = nil
	sess.HandleTask(Task{Kind: TaskTick, Generation: st.Generation})
	if st.TimeRemaining != st.TimeLimit-1 {
		t.Errorf("Tick for the current game should count down, got %ds left", st.TimeRemaining)
	}
	if countKind(*events, state.TimeUpdated) != 1 {
		t.Errorf("Expected one TimeUpdated event, got %v", *events)
	}
}

package game

import (
	"fmt"
	"time"
)

const (
	// TickInterval is how often the countdown advances.
	TickInterval = time.Second
	// ResolveDelay is how long a flipped pair stays visible.
	ResolveDelay = time.Second
)

type TaskKind int

const (
	TaskTick TaskKind = iota
	TaskResolve
)

func (k TaskKind) String() string {
	switch k {
	case TaskTick:
		return "tick"
	case TaskResolve:
		return "resolve"
	default:
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
}

// Task is a deferred callback bound to the game generation that scheduled
// it. Tasks from an older generation are dropped.
type Task struct {
	Kind       TaskKind
	Generation uint64
}

// Scheduler arranges for a task to be handed back to Session.HandleTask after
// delay. Schedule must not block.
type Scheduler interface {
	Schedule(delay time.Duration, t Task)
}

// Pending is a scheduled task that has not been dispatched yet.
type Pending struct {
	Delay time.Duration
	Task  Task
}

// Queue collects scheduled tasks until the event loop drains them.
type Queue struct {
	pending []Pending
}

func (q *Queue) Schedule(delay time.Duration, t Task) {
	q.pending = append(q.pending, Pending{Delay: delay, Task: t})
}

// Drain returns and clears the queued tasks in scheduling order.
func (q *Queue) Drain() []Pending {
	out := q.pending
	q.pending = nil
	return out
}

func (q *Queue) Len() int {
	return len(q.pending)
}

// Package notify carries user-facing success and error notices ("toasts").
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kidandcat/portfolio/internal/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// Log writes notices to a zap logger. Used by the CLI and the server seeder.
type Log struct {
	L *zap.SugaredLogger
}

func (n Log) Success(msg string) { logger.OrNop(n.L).Infow(msg, "notice", LevelSuccess) }
func (n Log) Error(msg string)   { logger.OrNop(n.L).Errorw(msg, "notice", LevelError) }

// Queue keeps notices until a view drains them. Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
	limit  int
	// OnPush, when set, is called after every push (outside the lock).
	OnPush func(Toast)
}

// NewQueue keeps at most limit toasts, dropping the oldest. limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }
func (q *Queue) Error(msg string)   { q.push(LevelError, msg) }

func (q *Queue) push(level Level, msg string) {
	t := Toast{Level: level, Message: msg, At: time.Now()}
	q.mu.Lock()
	q.toasts = append(q.toasts, t)
	if q.limit > 0 && len(q.toasts) > q.limit {
		q.toasts = q.toasts[len(q.toasts)-q.limit:]
	}
	onPush := q.OnPush
	q.mu.Unlock()
	if onPush != nil {
		onPush(t)
	}
}

// Drain returns and forgets every pending toast.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

// Messages returns pending messages at level without draining.
func (q *Queue) Messages(level Level) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, t := range q.toasts {
		if t.Level == level {
			out = append(out, t.Message)
		}
	}
	return out
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}

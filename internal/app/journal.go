package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const journalDepth = 256

type journalOp struct {
	name string
	fn   func(ctx context.Context) error
}

// journal runs persistence operations one at a time, in submission order, off
// the UI goroutine. A session row is therefore always written before its
// segments. Operations are best effort: failures are logged, and when the
// queue is full new operations are dropped.
type journal struct {
	ctx  context.Context
	log  zerolog.Logger
	ops  chan journalOp
	done chan struct{}
	once sync.Once
}

// newJournal keeps ctx's values but not its cancellation, so writes queued
// during shutdown still complete.
func newJournal(ctx context.Context, log zerolog.Logger) *journal {
	j := &journal{
		ctx:  context.WithoutCancel(ctx),
		log:  log,
		ops:  make(chan journalOp, journalDepth),
		done: make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *journal) run() {
	defer close(j.done)
	for op := range j.ops {
		if err := op.fn(j.ctx); err != nil {
			j.log.Warn().Err(err).Str("op", op.name).Msg("persistence failed")
		}
	}
}

func (j *journal) submit(name string, fn func(ctx context.Context) error) {
	select {
	case j.ops <- journalOp{name: name, fn: fn}:
	default:
		j.log.Warn().Str("op", name).Msg("persistence queue full, dropping")
	}
}

// close waits for queued operations to finish. Submitting after close panics.
func (j *journal) close() {
	j.once.Do(func() {
		close(j.ops)
		<-j.done
	})
}

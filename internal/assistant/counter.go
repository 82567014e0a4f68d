package assistant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bensuskins/command-center/internal/signal"
	"github.com/bensuskins/command-center/internal/storage"
)

// Counter tracks successful completions across restarts.
type Counter struct {
	mutex sync.Mutex
	local *storage.Local
	value *signal.Value[int]
}

func NewCounter(ctx context.Context, local *storage.Local) *Counter {
	count, _ := storage.Get[int](ctx, local, storage.KeyAICallCount)
	return &Counter{local: local, value: signal.New(count)}
}

func (counter *Counter) Count() int {
	return counter.value.Get()
}

func (counter *Counter) Subscribe(fn func(int)) func() {
	return counter.value.Subscribe(fn)
}

func (counter *Counter) Increment(ctx context.Context) int {
	counter.mutex.Lock()
	defer counter.mutex.Unlock()

	next := counter.value.Get() + 1
	if err := counter.local.Set(ctx, storage.KeyAICallCount, next); err != nil {
		slog.Error("saving ai call count", "error", err)
	}
	counter.value.Set(next)
	return next
}

func (counter *Counter) Reset(ctx context.Context) {
	counter.mutex.Lock()
	defer counter.mutex.Unlock()

	if err := counter.local.Remove(ctx, storage.KeyAICallCount); err != nil {
		slog.Error("resetting ai call count", "error", err)
	}
	counter.value.Set(0)
}

// Package telemetry tracks per-action-type usage counters.
package telemetry

import (
	"context"
	"sync"

	"github.com/quantor/signalflow/pkg/models"
)

// UsageRecorder is incremented once per successfully dispatched action.
// Implementations must be safe for concurrent use.
type UsageRecorder interface {
	IncrAction(ctx context.Context, actionType models.NodeType) error
}

// MemoryRecorder is the in-process default recorder.
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[models.NodeType]int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[models.NodeType]int64)}
}

func (r *MemoryRecorder) IncrAction(_ context.Context, actionType models.NodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[actionType]++

	return nil
}

// Count returns the recorded usage for an action type.
func (r *MemoryRecorder) Count(actionType models.NodeType) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[actionType]
}

// Package events fans document change events out to the configured sinks.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/simaogato/networth-backend/internal/domain"
)

// Fanout publishes every event to each sink in order.
// A failing sink does not stop the others; their errors are joined.
type Fanout struct {
	sinks []domain.EventPublisher
}

// NewFanout creates a publisher over sinks, skipping nil ones
func NewFanout(sinks ...domain.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Len returns the number of sinks
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Publish implements domain.EventPublisher
func (f *Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

package combiner_test

import (
	"context"
	"testing"

	"github.com/okian/kinema/internal/domain/combiner"
	"github.com/okian/kinema/internal/domain/model"
)

// BenchmarkCombinePerEvent measures the explicit per-event loop.
func BenchmarkCombinePerEvent(b *testing.B) {
	c := combiner.NewSubsetCombiner()
	events := benchEvents(256, 8)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := range events {
			if _, err := c.Combine(ctx, events[j]); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkCombineAll measures the batched pass over the same dataset.
func BenchmarkCombineAll(b *testing.B) {
	c := combiner.NewSubsetCombiner()
	events := benchEvents(256, 8)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.CombineAll(ctx, events); err != nil {
			b.Fatal(err)
		}
	}
}

func benchEvents(count, particles int) []model.Event {
	events := make([]model.Event, count)
	for i := range events {
		events[i] = neutralEvent("bench", particles)
	}
	return events
}

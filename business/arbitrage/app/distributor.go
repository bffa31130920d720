package app

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Distributor hands out the items of a slice to concurrent workers. Every item
// is returned exactly once across all callers of Next.
type Distributor[T any] struct {
	items []T
	next  atomic.Int64
}

// NewDistributor creates a distributor over items.
func NewDistributor[T any](items []T) *Distributor[T] {
	return &Distributor[T]{items: items}
}

// Next returns the next undistributed item and its index, or false when all
// items are handed out.
func (d *Distributor[T]) Next() (T, int, bool) {
	i := d.next.Add(1) - 1
	if i >= int64(len(d.items)) {
		var zero T
		return zero, -1, false
	}
	return d.items[i], int(i), true
}

// Len returns the number of items.
func (d *Distributor[T]) Len() int {
	return len(d.items)
}

// runPool starts workers goroutines that drain d with fn and waits for them.
// The first error returned by fn cancels the other workers.
func runPool[T any](ctx context.Context, workers int, d *Distributor[T], fn func(ctx context.Context, item T, index int) error) error {
	if workers <= 0 {
		workers = 1
	}
	if workers > d.Len() {
		workers = d.Len()
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				item, index, ok := d.Next()
				if !ok {
					return nil
				}
				if err := fn(ctx, item, index); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

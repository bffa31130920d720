package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDistributor_EachItemOnce(t *testing.T) {
	const items = 10_000
	input := make([]int, items)
	for i := range input {
		input[i] = i
	}

	dist := NewDistributor(input)
	seen := make([]atomic.Int32, items)

	var wg sync.WaitGroup
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, index, ok := dist.Next()
				if !ok {
					return
				}
				if item != index {
					t.Errorf("item %d returned with index %d", item, index)
				}
				seen[item].Add(1)
			}
		}()
	}
	wg.Wait()

	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("item %d distributed %d times", i, n)
		}
	}
	if _, _, ok := dist.Next(); ok {
		t.Error("exhausted distributor returned an item")
	}
}

func TestRunPool_StopsOnError(t *testing.T) {
	boom := errors.New("boom")

	err := runPool(context.Background(), 4, NewDistributor(make([]int, 1000)), func(ctx context.Context, _ int, index int) error {
		if index == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunPool_Empty(t *testing.T) {
	err := runPool(context.Background(), 4, NewDistributor[int](nil), func(context.Context, int, int) error {
		t.Fatal("no item expected")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

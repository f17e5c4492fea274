package spatial

import (
	"sort"
	"sync"
	"testing"
)

// TestGridQueryRadius verifies candidates include nearby points and skip far cells
func TestGridQueryRadius(t *testing.T) {
	g := NewGrid(1000, 1000, 100, 64)
	g.Insert(1, 50, 50)
	g.Insert(2, 150, 50)
	g.Insert(3, 950, 950)

	got := append([]uint32(nil), g.QueryRadius(60, 60, 30)...)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected only id 1, got %v", got)
	}

	got = append([]uint32(nil), g.QueryRadius(100, 50, 60)...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Expected ids 1 and 2, got %v", got)
	}

	if g.Len() != 3 {
		t.Errorf("Expected 3 entities, got %d", g.Len())
	}
}

// TestGridClampsOutOfBounds verifies points outside the world stay queryable
func TestGridClampsOutOfBounds(t *testing.T) {
	g := NewGrid(500, 500, 100, 16)
	g.Insert(7, -40, -40)
	g.Insert(8, 900, 200)

	if got := g.QueryRadius(10, 10, 20); len(got) != 1 || got[0] != 7 {
		t.Errorf("Expected id 7 from the corner cell, got %v", got)
	}
	if got := g.QueryRadius(490, 210, 5); len(got) != 1 || got[0] != 8 {
		t.Errorf("Expected id 8 from the border cell, got %v", got)
	}
}

func TestGridResetAndStats(t *testing.T) {
	g := NewGrid(300, 300, 100, 16)
	for i := uint32(0); i < 5; i++ {
		g.Insert(i, 10, 10)
	}
	g.Insert(9, 250, 250)

	s := g.Stats()
	if s.Cols != 3 || s.Rows != 3 {
		t.Errorf("Expected 3x3 grid, got %dx%d", s.Cols, s.Rows)
	}
	if s.TotalEntities != 6 || s.MaxInCell != 5 || s.NonEmptyCells != 2 {
		t.Errorf("Unexpected stats %+v", s)
	}

	g.Reset()
	if g.Len() != 0 || g.Stats().TotalEntities != 0 {
		t.Error("Expected empty grid after reset")
	}
}

// TestQueueFIFO verifies order, capacity rounding and full/empty behavior
func TestQueueFIFO(t *testing.T) {
	q := NewLockFreeQueue[int](3)
	if q.Cap() != 4 {
		t.Fatalf("Expected capacity 4, got %d", q.Cap())
	}

	for i := 0; i < 4; i++ {
		if !q.TryPush(i) {
			t.Fatalf("Push %d failed", i)
		}
	}
	if q.TryPush(99) {
		t.Error("Expected push into full queue to fail")
	}

	for i := 0; i < 4; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Errorf("Expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("Expected empty queue")
	}

	// Wrap around
	q.TryPush(5)
	q.TryPush(6)
	buf := make([]int, 8)
	if n := q.DrainTo(buf); n != 2 || buf[0] != 5 || buf[1] != 6 {
		t.Errorf("Unexpected drain %v (n=%d)", buf[:n], n)
	}
}

// TestQueueConcurrentProducers pushes from several goroutines and checks nothing is lost
func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 4
	const perProducer = 1000

	q := NewLockFreeQueue[int](producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.TryPush(base + i) {
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	seen := make(map[int]bool, producers*perProducer)
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("Duplicate value %d", v)
		}
		seen[v] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("Expected %d values, got %d", producers*perProducer, len(seen))
	}
}

package store

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"procem/pkg/measurement"
)

func TestAddKeepsTimestampOrderAndCap(t *testing.T) {
	s := New(3)
	s.Add(1, measurement.LongValue(10), 100)
	s.Add(1, measurement.LongValue(30), 300)
	s.Add(1, measurement.LongValue(20), 200)
	s.Add(1, measurement.LongValue(40), 400)

	got := s.Get(1, 0)
	if len(got) != 3 {
		t.Fatalf("expected cap of 3, got %d entries: %+v", len(got), got)
	}
	wantTs := []int64{200, 300, 400}
	for i, p := range got {
		if p.Ts != wantTs[i] {
			t.Fatalf("entry %d: want ts %d got %d (%+v)", i, wantTs[i], p.Ts, got)
		}
	}
}

func TestAddOverwritesMatchingTimestamp(t *testing.T) {
	s := New(5)
	s.Add(1, measurement.DoubleValue(1.0), 10)
	s.Add(1, measurement.DoubleValue(2.0), 10)

	got := s.Get(1, 0)
	if len(got) != 1 {
		t.Fatalf("expected overwrite to keep length 1, got %d", len(got))
	}
	if got[0].V.D != 2.0 {
		t.Fatalf("expected overwritten value 2.0, got %v", got[0].V)
	}
}

func TestAddSkipsExactDuplicate(t *testing.T) {
	s := New(5)
	s.Add(1, measurement.DoubleValue(1.0), 10)
	s.Add(1, measurement.DoubleValue(1.0), 10)

	got := s.Get(1, 0)
	if len(got) != 1 {
		t.Fatalf("expected duplicate to be a no-op, got %d entries", len(got))
	}
}

func TestGetReturnsTailOfMax(t *testing.T) {
	s := New(10)
	for i := int64(0); i < 5; i++ {
		s.Add(1, measurement.LongValue(i), i*10)
	}
	got := s.Get(1, 2)
	if len(got) != 2 || got[0].Ts != 30 || got[1].Ts != 40 {
		t.Fatalf("unexpected tail: %+v", got)
	}
}

func TestSetLimitTrimsImmediately(t *testing.T) {
	s := New(10)
	for i := int64(0); i < 5; i++ {
		s.Add(1, measurement.LongValue(i), i*10)
	}
	s.SetLimit(1, 2)
	got := s.Get(1, 0)
	if len(got) != 2 {
		t.Fatalf("expected immediate trim to 2, got %d", len(got))
	}
}

func TestConcurrentInsertsStayOrderedWithNoDuplicates(t *testing.T) {
	s := New(1000)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				ts := int64(r.Intn(50))
				s.Add(42, measurement.LongValue(ts), ts)
			}
		}(int64(w))
	}
	wg.Wait()

	got := s.Get(42, 0)
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Ts < got[j].Ts }) {
		t.Fatalf("expected timestamp-sorted result, got %+v", got)
	}
	seen := map[int64]bool{}
	for _, p := range got {
		if seen[p.Ts] {
			t.Fatalf("duplicate timestamp %d in result", p.Ts)
		}
		seen[p.Ts] = true
	}
}

func BenchmarkAdd(b *testing.B) {
	s := New(100)
	for i := 0; i < b.N; i++ {
		s.Add(1, measurement.LongValue(int64(i)), int64(i))
	}
}

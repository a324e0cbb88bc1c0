package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

// closeCounter wraps a slice iterator and records how often Close ran.
type closeCounter struct {
	sliceIter[int]
	closes int
	pulled int
}

func (c *closeCounter) Next(ctx context.Context) (int, bool, error) {
	v, ok, err := c.sliceIter.Next(ctx)
	if ok {
		c.pulled++
	}
	return v, ok, err
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func tracked(items ...int) (*Pipeline[int], *closeCounter) {
	c := &closeCounter{sliceIter: sliceIter[int]{items: items}}
	return FromFunc(func(_ context.Context) Iterator[int] { return c }), c
}

func TestFromSlice_Collect(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Restartable(t *testing.T) {
	p := FromSlice([]int{1, 2})
	first, _ := Collect(context.Background(), p)
	second, _ := Collect(context.Background(), p)
	if !slices.Equal(first, second) {
		t.Errorf("expected identical pulls, got %v and %v", first, second)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFrom_OneShot(t *testing.T) {
	iter := &sliceIter[string]{items: []string{"a", "b"}}
	p := From[string](iter)
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
	again, err := Collect(context.Background(), p)
	if err != nil || len(again) != 0 {
		t.Errorf("second pull of a one-shot source should be empty, got %v (%v)", again, err)
	}
}

func TestFromSeq_OneShot(t *testing.T) {
	p := FromSeq(slices.Values([]int{4, 5}))
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, []int{4, 5}) {
		t.Errorf("got %v", got)
	}
	again, _ := Collect(context.Background(), p)
	if len(again) != 0 {
		t.Errorf("expected empty second pull, got %v", again)
	}
}

func TestMap(t *testing.T) {
	doubled := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{2, 4, 6}) {
		t.Errorf("got %v", got)
	}
}

func TestMap_Error(t *testing.T) {
	fail := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestMapIndexed_RestartsPerPull(t *testing.T) {
	p := MapIndexed(FromSlice([]string{"a", "b"}), func(_ context.Context, i int, s string) (string, error) {
		return strings.Repeat(s, i+1), nil
	})
	for range 2 {
		got, _ := Collect(context.Background(), p)
		if !slices.Equal(got, []string{"a", "bb"}) {
			t.Fatalf("got %v", got)
		}
	}
}

func TestFlatMap(t *testing.T) {
	p := FlatMap(FromSlice([]int{1, 2, 0, 3}), func(_ context.Context, n int) (Iterator[int], error) {
		items := make([]int, n)
		for i := range items {
			items[i] = n
		}
		return &sliceIter[int]{items: items}, nil
	})
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, []int{1, 2, 2, 3, 3, 3}) {
		t.Errorf("got %v", got)
	}
}

func TestFilter(t *testing.T) {
	evens := Filter(FromSlice([]int{1, 2, 3, 4}), func(n int) bool { return n%2 == 0 })
	got, _ := Collect(context.Background(), evens)
	if !slices.Equal(got, []int{2, 4}) {
		t.Errorf("got %v", got)
	}
}

func TestTap(t *testing.T) {
	var seen []int
	p := Tap(FromSlice([]int{1, 2}), func(_ context.Context, n int) error {
		seen = append(seen, n)
		return nil
	})
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, seen) {
		t.Errorf("tap saw %v, collect got %v", seen, got)
	}
}

func TestReduce(t *testing.T) {
	sum := Reduce(FromSlice([]int{1, 2, 3}), 0, func(acc, n int) int { return acc + n })
	got, _ := Collect(context.Background(), sum)
	if !slices.Equal(got, []int{6}) {
		t.Errorf("got %v", got)
	}
}

func TestConcat_OpensLazily(t *testing.T) {
	second, c := tracked(3, 4)
	p := Limit(Concat(FromSlice([]int{1, 2}), second), 2)
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("got %v", got)
	}
	if c.pulled != 0 {
		t.Errorf("second source should not have been pulled, pulled %d", c.pulled)
	}
}

func TestConcat(t *testing.T) {
	p := Concat(FromSlice([]int{1}), Empty[int](), FromSlice([]int{2, 3}))
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("got %v", got)
	}
}

func TestZipLongest(t *testing.T) {
	p := ZipLongest(-1, FromSlice([]int{1, 2, 3}), FromSlice([]int{10}))
	got, _ := Collect(context.Background(), p)
	want := [][]int{{1, 10}, {2, -1}, {3, -1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("row %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLimit_ClosesSourceWithoutDraining(t *testing.T) {
	src, c := tracked(1, 2, 3, 4, 5)
	got, _ := Collect(context.Background(), Limit(src, 2))
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("got %v", got)
	}
	if c.pulled != 2 {
		t.Errorf("expected 2 pulls, got %d", c.pulled)
	}
	if c.closes == 0 {
		t.Error("expected source to be closed")
	}
}

func TestLimit_LargerThanSource(t *testing.T) {
	got, err := Collect(context.Background(), Limit(FromSlice([]int{1, 2}), 10))
	if err != nil || !slices.Equal(got, []int{1, 2}) {
		t.Errorf("got %v (%v)", got, err)
	}
}

func TestLimit_Zero(t *testing.T) {
	src, c := tracked(1, 2)
	got, _ := Collect(context.Background(), Limit(src, 0))
	if len(got) != 0 || c.pulled != 0 {
		t.Errorf("got %v after %d pulls", got, c.pulled)
	}
}

func TestReverse(t *testing.T) {
	got, _ := Collect(context.Background(), Reverse(FromSlice([]int{2, 3, 1})))
	if !slices.Equal(got, []int{1, 3, 2}) {
		t.Errorf("got %v", got)
	}
}

func TestReverse_DoesNotMutateSource(t *testing.T) {
	items := []int{1, 2, 3}
	Collect(context.Background(), Reverse(FromSlice(items)))
	if !slices.Equal(items, []int{1, 2, 3}) {
		t.Errorf("source slice was reordered: %v", items)
	}
}

func TestSortStable(t *testing.T) {
	type kv struct {
		k int
		v string
	}
	p := SortStable(FromSlice([]kv{{2, "a"}, {1, "b"}, {2, "c"}, {1, "d"}}), func(a, b kv) int { return a.k - b.k })
	got, _ := Collect(context.Background(), p)
	var order []string
	for _, e := range got {
		order = append(order, e.v)
	}
	if !slices.Equal(order, []string{"b", "d", "a", "c"}) {
		t.Errorf("expected stable order, got %v", order)
	}
}

func TestDistinct(t *testing.T) {
	p := Distinct(FromSlice([]int{2, 2, 2, 1, 4, 3, 1}), func(n int) any { return n })
	got, _ := Collect(context.Background(), p)
	if !slices.Equal(got, []int{2, 1, 4, 3}) {
		t.Errorf("got %v", got)
	}
}

func TestDistinct_NonComparableKeys(t *testing.T) {
	p := Distinct(FromSlice([][]int{{1}, {2}, {1}}), func(v []int) any { return v })
	got, _ := Collect(context.Background(), p)
	if len(got) != 2 {
		t.Errorf("expected 2 distinct slices, got %v", got)
	}
}

func TestDistinct_ComparableKeyHoldingSlice(t *testing.T) {
	type boxed struct{ V any }
	in := []boxed{{[]int{1}}, {[]int{1}}, {[]int{2}}, {3}, {3}}
	p := Distinct(FromSlice(in), func(v boxed) any { return v })
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 distinct values, got %v", got)
	}
}

func TestDrain_Run(t *testing.T) {
	total := 0
	err := Drain(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) error {
		total += n
		return nil
	}).Run(context.Background())
	if err != nil || total != 6 {
		t.Errorf("total=%d err=%v", total, err)
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	src, c := tracked(1, 2, 3)
	err := ForEach(context.Background(), src, func(_ context.Context, n int) error {
		if n == 2 {
			return errors.New("stop")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if c.closes == 0 {
		t.Error("source must be closed on error exit")
	}
}

func TestAll_BreakCloses(t *testing.T) {
	src, c := tracked(1, 2, 3)
	for v, err := range All(context.Background(), src) {
		if err != nil {
			t.Fatal(err)
		}
		if v == 1 {
			break
		}
	}
	if c.closes == 0 {
		t.Error("breaking out of All must close the chain")
	}
}

func TestMaterialize(t *testing.T) {
	p, err := Materialize(context.Background(), From[int](&sliceIter[int]{items: []int{1, 2}}))
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		got, _ := Collect(context.Background(), p)
		if !slices.Equal(got, []int{1, 2}) {
			t.Errorf("got %v", got)
		}
	}
}

func TestFromSeq_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, FromSeq(slices.Values([]int{1})))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFuncIter_CloseOnce(t *testing.T) {
	closes := 0
	it := &FuncIter[int]{
		NextFunc:  func(context.Context) (int, bool, error) { return 1, true, nil },
		CloseFunc: func() error { closes++; return nil },
	}
	it.Close()
	it.Close()
	if closes != 1 {
		t.Errorf("expected one close, got %d", closes)
	}
	if _, ok, _ := it.Next(context.Background()); ok {
		t.Error("closed iterator must not yield")
	}
}

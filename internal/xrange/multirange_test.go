package xrange_test

import (
	"reflect"
	"testing"

	"github.com/glidewire/hotmesh/internal/xrange"
)

func TestMultiRangeAdd(t *testing.T) {
	m := xrange.New()
	m.Add(mustRange(t, 1, 3))
	m.Add(mustRange(t, 3, 5))
	m.Add(mustRange(t, 7, 9))
	m.Add(mustRange(t, 2, 8))

	got := m.Ranges()
	want := []xrange.Range{mustRange(t, 1, 9)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ranges() = %v, want %v", got, want)
	}
}

func TestMultiRangeAddDisjoint(t *testing.T) {
	m := xrange.New()
	m.Add(mustRange(t, 10, 20))
	m.Add(mustRange(t, 0, 5))
	m.Add(mustRange(t, 30, 40))

	got := m.Ranges()
	want := []xrange.Range{mustRange(t, 0, 5), mustRange(t, 10, 20), mustRange(t, 30, 40)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ranges() = %v, want %v", got, want)
	}
}

func TestMultiRangeSubtract(t *testing.T) {
	self := xrange.FromRange(mustRange(t, 0, 100))
	other := xrange.New()
	other.Add(mustRange(t, 10, 20))
	other.Add(mustRange(t, 30, 40))
	other.Add(mustRange(t, 50, 60))

	got := self.Subtract(other).Ranges()
	want := []xrange.Range{
		mustRange(t, 0, 10),
		mustRange(t, 20, 30),
		mustRange(t, 40, 50),
		mustRange(t, 60, 100),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Subtract = %v, want %v", got, want)
	}
}

func TestMultiRangeSubtractFullyCovered(t *testing.T) {
	self := xrange.FromRange(mustRange(t, 10, 20))
	other := xrange.FromRange(mustRange(t, 0, 100))

	got := self.Subtract(other).Ranges()
	if len(got) != 0 {
		t.Fatalf("Subtract = %v, want empty", got)
	}
}

func TestMultiRangeIntersect(t *testing.T) {
	a := xrange.New()
	a.Add(mustRange(t, 0, 10))
	a.Add(mustRange(t, 20, 30))

	b := xrange.New()
	b.Add(mustRange(t, 5, 25))

	got := a.Intersect(b).Ranges()
	want := []xrange.Range{mustRange(t, 5, 10), mustRange(t, 20, 25)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
}

func TestSplitterWholeRanges(t *testing.T) {
	m := xrange.New()
	m.Add(mustRange(t, 0, 5))
	m.Add(mustRange(t, 10, 12))

	sp := m.Split(0)
	var got []xrange.Range
	for {
		r, ok := sp.Next()
		if !ok {
			break
		}
		got = append(got, r)
	}
	if err := sp.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []xrange.Range{mustRange(t, 0, 5), mustRange(t, 10, 12)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split(0) = %v, want %v", got, want)
	}
}

func TestSplitterChunked(t *testing.T) {
	m := xrange.FromRange(mustRange(t, 0, 7))
	sp := m.Split(3)

	var got []xrange.Range
	for {
		r, ok := sp.Next()
		if !ok {
			break
		}
		got = append(got, r)
	}
	want := []xrange.Range{
		mustRange(t, 0, 3),
		mustRange(t, 3, 6),
		mustRange(t, 6, 7),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split(3) = %v, want %v", got, want)
	}
}

func TestMultiRangeCloneIsIndependent(t *testing.T) {
	m := xrange.FromRange(mustRange(t, 0, 5))
	cp := m.Clone()
	cp.Add(mustRange(t, 10, 15))

	if m.Len() != 1 {
		t.Fatalf("original MultiRange was mutated by editing its clone")
	}
	if cp.Len() != 2 {
		t.Fatalf("clone Add didn't take effect")
	}
}

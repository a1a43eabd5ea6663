package ur

import (
	"slices"
	"testing"
)

func TestXoshiro_ReferenceSequence(t *testing.T) {
	x := newXoshiro([]byte("Wolf"))
	want := []uint64{42, 81, 85, 8, 82, 84, 76, 73, 70, 88, 2, 74, 40, 48, 77, 54, 88, 7, 5, 88}

	for i, w := range want {
		if got := x.next() % 100; got != w {
			t.Fatalf("next()[%d] %% 100 = %d, want %d", i, got, w)
		}
	}
}

func TestXoshiro_Deterministic(t *testing.T) {
	a := newXoshiro([]byte{0, 0, 0, 42, 1, 2, 3, 4})
	b := newXoshiro([]byte{0, 0, 0, 42, 1, 2, 3, 4})
	for i := 0; i < 50; i++ {
		if a.next() != b.next() {
			t.Fatalf("sequences diverged at %d", i)
		}
	}
}

func TestXoshiro_NextIntRange(t *testing.T) {
	x := newXoshiro([]byte("range"))
	for i := 0; i < 1000; i++ {
		n := x.nextInt(3, 7)
		if n < 3 || n > 7 {
			t.Fatalf("nextInt(3, 7) = %d, out of range", n)
		}
	}
}

// removalShuffle is the straightforward quadratic shuffle choose must match.
func removalShuffle(x *xoshiro, n int) []int {
	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}
	out := make([]int, 0, n)
	for len(remaining) > 0 {
		i := x.nextInt(0, len(remaining)-1)
		out = append(out, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return out
}

func TestXoshiro_ChooseMatchesRemovalShuffle(t *testing.T) {
	tests := []struct {
		n, k int
	}{
		{1, 1},
		{2, 1},
		{10, 10},
		{11, 3},
		{100, 37},
		{1000, 1000},
		{4097, 12},
	}
	for _, tt := range tests {
		seed := []byte{byte(tt.n), byte(tt.n >> 8), byte(tt.k)}
		want := removalShuffle(newXoshiro(seed), tt.n)[:tt.k]
		got := newXoshiro(seed).choose(tt.n, tt.k)
		if !slices.Equal(got, want) {
			t.Errorf("choose(%d, %d) = %v, want %v", tt.n, tt.k, got, want)
		}
	}
}

func TestXoshiro_ChooseIsPermutation(t *testing.T) {
	x := newXoshiro([]byte("shuffle"))
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	got := x.choose(len(items), len(items))
	sorted := slices.Clone(got)
	slices.Sort(sorted)
	if !slices.Equal(sorted, items) {
		t.Errorf("choose() = %v, not a permutation of %v", got, items)
	}
}

func TestDegreeSampler_Cached(t *testing.T) {
	a := degreeSampler(17)
	if b := degreeSampler(17); a != b {
		t.Error("degreeSampler(17) rebuilt for the same length")
	}
	if c := degreeSampler(18); len(c.probs) != 18 {
		t.Errorf("degreeSampler(18) has %d weights, want 18", len(c.probs))
	}
}

func TestChooseDegree_Range(t *testing.T) {
	x := newXoshiro([]byte("degree"))
	for i := 0; i < 500; i++ {
		d := x.chooseDegree(11)
		if d < 1 || d > 11 {
			t.Fatalf("chooseDegree(11) = %d, out of range", d)
		}
	}
}

package ur

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/bits"
	"sync"
)

// xoshiro is the xoshiro256** generator seeded from a SHA-256 digest.
type xoshiro struct {
	s [4]uint64
}

func newXoshiro(seed []byte) *xoshiro {
	digest := sha256.Sum256(seed)
	x := &xoshiro{}
	for i := range x.s {
		x.s[i] = binary.BigEndian.Uint64(digest[i*8 : i*8+8])
	}
	return x
}

func (x *xoshiro) next() uint64 {
	result := bits.RotateLeft64(x.s[1]*5, 7) * 9
	t := x.s[1] << 17

	x.s[2] ^= x.s[0]
	x.s[3] ^= x.s[1]
	x.s[1] ^= x.s[2]
	x.s[0] ^= x.s[3]
	x.s[2] ^= t
	x.s[3] = bits.RotateLeft64(x.s[3], 45)

	return result
}

// nextDouble returns a value in [0, 1).
func (x *xoshiro) nextDouble() float64 {
	return float64(x.next()) / (float64(math.MaxUint64) + 1)
}

// nextInt returns a value in [low, high].
func (x *xoshiro) nextInt(low, high int) int {
	return int(math.Floor(x.nextDouble()*float64(high-low+1))) + low
}

// choose returns the first k values of a shuffle of 0..n-1 by repeated
// random removal. Each draw picks the i-th smallest value not yet taken,
// which a Fenwick tree over the remaining values finds in O(log n).
func (x *xoshiro) choose(n, k int) []int {
	tree := make([]int, n+1)
	for i := 1; i <= n; i++ {
		tree[i]++
		if j := i + i&-i; j <= n {
			tree[j] += tree[i]
		}
	}
	top := 1
	for top*2 <= n {
		top *= 2
	}

	out := make([]int, 0, k)
	for remaining := n; len(out) < k && remaining > 0; remaining-- {
		rank := x.nextInt(0, remaining-1) + 1
		pos := 0
		for step := top; step > 0; step /= 2 {
			if next := pos + step; next <= n && tree[next] < rank {
				pos = next
				rank -= tree[next]
			}
		}
		out = append(out, pos)
		for i := pos + 1; i <= n; i += i & -i {
			tree[i]--
		}
	}
	return out
}

// sampler is Walker's alias method over a fixed weight vector.
type sampler struct {
	probs   []float64
	aliases []int
}

func newSampler(weights []float64) *sampler {
	n := len(weights)
	var sum float64
	for _, w := range weights {
		sum += w
	}

	p := make([]float64, n)
	for i, w := range weights {
		p[i] = w * float64(n) / sum
	}

	var small, large []int
	for i := n - 1; i >= 0; i-- {
		if p[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	s := &sampler{probs: make([]float64, n), aliases: make([]int, n)}
	for len(small) > 0 && len(large) > 0 {
		a := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		s.probs[a] = p[a]
		s.aliases[a] = g
		p[g] = (p[g] + p[a]) - 1
		if p[g] < 1 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}
	for _, g := range large {
		s.probs[g] = 1
	}
	for _, a := range small {
		s.probs[a] = 1
	}
	return s
}

func (s *sampler) next(x *xoshiro) int {
	r1 := x.nextDouble()
	r2 := x.nextDouble()
	i := int(float64(len(s.probs)) * r1)
	if r2 < s.probs[i] {
		return i
	}
	return s.aliases[i]
}

// degrees caches the degree sampler of the most recent sequence length;
// every part of one message shares it.
var degrees struct {
	mu      sync.Mutex
	seqLen  int
	sampler *sampler
}

func degreeSampler(seqLen int) *sampler {
	degrees.mu.Lock()
	defer degrees.mu.Unlock()
	if degrees.sampler == nil || degrees.seqLen != seqLen {
		weights := make([]float64, seqLen)
		for i := range weights {
			weights[i] = 1 / float64(i+1)
		}
		degrees.seqLen = seqLen
		degrees.sampler = newSampler(weights)
	}
	return degrees.sampler
}

// chooseDegree picks how many fragments a mixed part combines.
func (x *xoshiro) chooseDegree(seqLen int) int {
	return degreeSampler(seqLen).next(x) + 1
}

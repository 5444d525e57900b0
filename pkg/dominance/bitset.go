package dominance

import "math/bits"

const wordBits = 64

// bitset is a fixed-universe bit vector over node ids [0, n).
// The universe size is fixed at allocation; bits above it stay zero so
// word-parallel operations and popcounts need no masking afterwards.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+wordBits-1)/wordBits)
}

func (b bitset) set(i int) {
	b[i/wordBits] |= 1 << (i % wordBits)
}

func (b bitset) test(i int) bool {
	return b[i/wordBits]&(1<<(i%wordBits)) != 0
}

// fill sets every bit in [0, n).
func (b bitset) fill(n int) {
	for i := range b {
		b[i] = ^uint64(0)
	}
	if rem := n % wordBits; rem != 0 {
		b[len(b)-1] = (1 << rem) - 1
	}
}

func (b bitset) clearAll() {
	for i := range b {
		b[i] = 0
	}
}

// intersectKeep intersects b with o in place while leaving bit keep set,
// and reports whether b changed. Keeping the self bit inside the same
// word operation matters for the solver's convergence check: clearing
// and re-setting it afterwards would register as a change forever.
func (b bitset) intersectKeep(o bitset, keep int) bool {
	keepWord := keep / wordBits
	keepMask := uint64(1) << (keep % wordBits)
	changed := false
	for i := range b {
		mask := o[i]
		if i == keepWord {
			mask |= keepMask
		}
		if next := b[i] & mask; next != b[i] {
			b[i] = next
			changed = true
		}
	}
	return changed
}

func (b bitset) count() int {
	total := 0
	for _, w := range b {
		total += bits.OnesCount64(w)
	}
	return total
}

// members appends the set bits in ascending order.
func (b bitset) members() []int {
	out := make([]int, 0, b.count())
	for i, w := range b {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, i*wordBits+bit)
			w &= w - 1
		}
	}
	return out
}

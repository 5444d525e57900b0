package dominance

import "testing"

func TestBitsetFill(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"single bit", 1},
		{"partial word", 10},
		{"exact word", 64},
		{"word plus one", 65},
		{"several words", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBitset(tt.n)
			b.fill(tt.n)
			if got := b.count(); got != tt.n {
				t.Errorf("count after fill(%d) = %d, want %d", tt.n, got, tt.n)
			}
			for i := 0; i < tt.n; i++ {
				if !b.test(i) {
					t.Fatalf("bit %d not set after fill(%d)", i, tt.n)
				}
			}
		})
	}
}

func TestBitsetSetTest(t *testing.T) {
	b := newBitset(130)
	for _, i := range []int{0, 63, 64, 129} {
		b.set(i)
	}
	for _, i := range []int{0, 63, 64, 129} {
		if !b.test(i) {
			t.Errorf("bit %d not set", i)
		}
	}
	for _, i := range []int{1, 62, 65, 128} {
		if b.test(i) {
			t.Errorf("bit %d unexpectedly set", i)
		}
	}
}

func TestIntersectKeep(t *testing.T) {
	n := 70
	b := newBitset(n)
	b.fill(n)
	o := newBitset(n)
	o.set(3)
	o.set(67)

	// First intersection shrinks b down to {3, 5, 67}; bit 5 is kept even
	// though o lacks it.
	if !b.intersectKeep(o, 5) {
		t.Fatal("intersectKeep reported no change on a shrinking intersection")
	}
	want := []int{3, 5, 67}
	got := b.members()
	if len(got) != len(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("members = %v, want %v", got, want)
		}
	}

	// Repeating the same intersection must be a no-op: this is what the
	// solver's convergence detection relies on.
	if b.intersectKeep(o, 5) {
		t.Error("intersectKeep reported change on an already-converged set")
	}
}

func TestMembersOrdered(t *testing.T) {
	b := newBitset(256)
	for _, i := range []int{255, 0, 128, 64, 7} {
		b.set(i)
	}
	got := b.members()
	want := []int{0, 7, 64, 128, 255}
	if len(got) != len(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("members[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

package mathx_test

import (
	"fmt"
	"testing"

	"github.com/nasa-jpl/saperacam/mathx"
)

func ExampleLattice() {
	fmt.Println(mathx.Lattice(1, 8, 2))
	// Output: [1 3 5 7]
}

func TestCeilDiv(t *testing.T) {
	cases := [][3]int{{8, 8, 1}, {10, 8, 2}, {12, 8, 2}, {16, 8, 2}, {1, 8, 1}}
	for _, c := range cases {
		if got := mathx.CeilDiv(c[0], c[1]); got != c[2] {
			t.Errorf("CeilDiv(%d, %d) = %d, expected %d", c[0], c[1], got, c[2])
		}
	}
}

func TestRound(t *testing.T) {
	if got := mathx.Round(12.3456, 0.001); got < 12.3455 || got > 12.3465 {
		t.Errorf("expected 12.346, got %f", got)
	}
}

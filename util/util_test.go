package util_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nasa-jpl/saperacam/util"
)

func ExampleUnionInts() {
	fmt.Println(util.UnionInts([]int{1, 2, 4}, []int{1, 2, 3, 4}))
	// Output: [1 2 3 4]
}

func TestMergeErrorsAllNil(t *testing.T) {
	if err := util.MergeErrors([]error{nil, nil}); err != nil {
		t.Errorf("expected nil from all-nil input, got %v", err)
	}
}

func TestMergeErrorsKeepsEveryCause(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	err := util.MergeErrors([]error{a, nil, b})
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Errorf("expected merged error to wrap both causes, got %v", err)
	}
}

func TestUniqueString(t *testing.T) {
	inp := []string{"a", "b", "c", "a"}
	expected := []string{"a", "b", "c"}
	output := util.UniqueString(inp)
	if len(output) != len(expected) {
		t.Fatalf("expected %v got %v", expected, output)
	}
	for i := 0; i < len(output); i++ {
		if output[i] != expected[i] {
			t.Errorf("expected %s got %s", expected[i], output[i])
		}
	}
}

func TestAllElementsNumbers(t *testing.T) {
	cases := map[string]bool{
		"25":   true,
		"0.5":  true,
		"25ms": false,
		"":     false,
		"-1":   false,
	}
	for in, want := range cases {
		if got := util.AllElementsNumbers(in); got != want {
			t.Errorf("AllElementsNumbers(%q) = %v, want %v", in, got, want)
		}
	}
}

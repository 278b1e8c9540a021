// Package util contains misc internal utilities.
package util

import (
	"errors"
	"sort"
)

// MergeErrors combines a slice of errors into a single error.  nil entries
// are dropped; if nothing is left the result is nil.  The merged error
// satisfies errors.Is for every non-nil input
func MergeErrors(errs []error) error {
	return errors.Join(errs...)
}

// UnionInts returns the sorted set union of any number of int slices
func UnionInts(slices ...[]int) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, s := range slices {
		for _, v := range s {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// UniqueString returns the unique elements of a slice, preserving order
func UniqueString(in []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// AllElementsNumbers returns true if every rune of s is a digit or a decimal
// point, and s is not empty
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

package store

import (
	"strings"

	"golang.org/x/exp/constraints"
)

type CompareFunc func(lhs, rhs interface{}) int

func (f CompareFunc) Compare(lhs, rhs interface{}) int {
	return f(lhs, rhs)
}

type CompareFuncG[K any] func(lhs, rhs K) int

func IntegerCompare[K constraints.Integer](l, r K) int {
	if l < r {
		return -1
	} else if l == r {
		return 0
	} else {
		return 1
	}
}

func Int64Compare(l, r int64) int {
	return IntegerCompare(l, r)
}

func Uint64Compare(l, r uint64) int {
	return IntegerCompare(l, r)
}

func StringCompare(lhs, rhs string) int {
	return strings.Compare(lhs, rhs)
}

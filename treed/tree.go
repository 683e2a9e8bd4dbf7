package treed

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

type Tree[F constraints.Float, C Coord[F, C], T any] struct {
	Axis         C
	Threshold    F
	LessThan     *Tree[F, C, T]
	GreaterEqual *Tree[F, C, T]

	Leaf T
}

func (t *Tree[F, C, T]) IsLeaf() bool {
	return t.LessThan == nil
}

func (t *Tree[F, C, T]) Predict(c C) T {
	if t.IsLeaf() {
		return t.Leaf
	} else {
		dot := t.Axis.Dot(c)
		if dot < t.Threshold {
			return t.LessThan.Predict(c)
		} else {
			return t.GreaterEqual.Predict(c)
		}
	}
}

// NumLeaves counts the leaves of the tree.
func (t *Tree[F, C, T]) NumLeaves() int {
	if t.IsLeaf() {
		return 1
	}
	return t.LessThan.NumLeaves() + t.GreaterEqual.NumLeaves()
}

// Depth returns the length of the longest path from t to a leaf.
func (t *Tree[F, C, T]) Depth() int {
	if t.IsLeaf() {
		return 0
	}
	l, r := t.LessThan.Depth(), t.GreaterEqual.Depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

func (t *Tree[F, C, T]) String() string {
	if t.IsLeaf() {
		return fmt.Sprintf("return %v", t.Leaf)
	} else {
		return fmt.Sprintf(
			"if x * %v < %v {\n%s\n} else {\n%s\n}",
			t.Axis,
			t.Threshold,
			indentText(t.LessThan.String()),
			indentText(t.GreaterEqual.String()),
		)
	}
}

func indentText(text string) string {
	lines := strings.Split(text, "\n")
	for i, x := range lines {
		lines[i] = "  " + x
	}
	return strings.Join(lines, "\n")
}

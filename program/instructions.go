package program

import "math"

// Instruction is a named binary operation available to program lines.
type Instruction struct {
	Name string
	Fn   func(a, b float64) float64
}

// Set is an ordered instruction set; lines refer to instructions by index.
type Set []Instruction

// DefaultSet returns the instruction set used by the reference learner.
func DefaultSet() Set {
	return Set{
		{Name: "add", Fn: func(a, b float64) float64 { return a + b }},
		{Name: "sub", Fn: func(a, b float64) float64 { return a - b }},
		{Name: "mult", Fn: func(a, b float64) float64 { return a * b }},
		{Name: "div", Fn: protectedDiv},
		{Name: "max", Fn: math.Max},
		{Name: "min", Fn: math.Min},
	}
}

// Names returns the instruction names in index order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, in := range s {
		names[i] = in.Name
	}
	return names
}

func protectedDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

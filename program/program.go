// Package program implements the register-machine programs that score the
// edges of a Tangled Program Graph.
package program

import (
	"errors"
	"fmt"
	"math"

	"github.com/BaSui01/fedtpg/internal/pool"
)

var (
	// ErrInvalidInstruction is returned when a line references an instruction outside the set.
	ErrInvalidInstruction = errors.New("program: invalid instruction index")
	// ErrInvalidOperand is returned when an operand points outside its address space.
	ErrInvalidOperand = errors.New("program: invalid operand")
)

// DefaultNbRegisters is the register count used when a Program is created with New.
const DefaultNbRegisters = 8

// Source identifies the address space an Operand reads from.
type Source uint8

const (
	// SourceRegister reads one of the program registers.
	SourceRegister Source = iota
	// SourceData reads the environment observation.
	SourceData
	// SourceConstant reads the program constants.
	SourceConstant
)

// String returns the name of the source.
func (s Source) String() string {
	switch s {
	case SourceRegister:
		return "register"
	case SourceData:
		return "data"
	case SourceConstant:
		return "constant"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// Operand is one argument of a Line.
type Operand struct {
	Source Source `json:"source" yaml:"source"`
	Index  int    `json:"index" yaml:"index"`
}

// Line is a single instruction: registers[Destination] = Set[Instruction](Operands...).
type Line struct {
	Instruction int        `json:"instruction" yaml:"instruction"`
	Destination int        `json:"destination" yaml:"destination"`
	Operands    [2]Operand `json:"operands" yaml:"operands"`
}

// Program is a sequence of lines executed over a fixed register bank.
// Register 0 holds the bid once the program has run.
type Program struct {
	Lines       []Line    `json:"lines,omitempty" yaml:"lines,omitempty"`
	Constants   []float64 `json:"constants,omitempty" yaml:"constants,omitempty"`
	NbRegisters int       `json:"nb_registers" yaml:"nb_registers"`
}

// New creates an empty program with DefaultNbRegisters registers.
func New() *Program {
	return &Program{NbRegisters: DefaultNbRegisters}
}

// AddLine appends a line and returns a pointer to it for in-place configuration.
func (p *Program) AddLine() *Line {
	p.Lines = append(p.Lines, Line{})
	return &p.Lines[len(p.Lines)-1]
}

// Clone returns a deep copy. Mutating the copy never affects p.
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	c := &Program{NbRegisters: p.NbRegisters}
	if p.Lines != nil {
		c.Lines = make([]Line, len(p.Lines))
		copy(c.Lines, p.Lines)
	}
	if p.Constants != nil {
		c.Constants = make([]float64, len(p.Constants))
		copy(c.Constants, p.Constants)
	}
	return c
}

// Equal reports whether both programs hold the same lines, constants and register count.
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.NbRegisters != other.NbRegisters || len(p.Lines) != len(other.Lines) || len(p.Constants) != len(other.Constants) {
		return false
	}
	for i := range p.Lines {
		if p.Lines[i] != other.Lines[i] {
			return false
		}
	}
	for i := range p.Constants {
		if p.Constants[i] != other.Constants[i] {
			return false
		}
	}
	return true
}

// Validate checks every line against the instruction set and address spaces.
func (p *Program) Validate(set Set, dataSize int) error {
	for i, line := range p.Lines {
		if line.Instruction < 0 || line.Instruction >= len(set) {
			return fmt.Errorf("line %d: %w: %d", i, ErrInvalidInstruction, line.Instruction)
		}
		if line.Destination < 0 || line.Destination >= p.NbRegisters {
			return fmt.Errorf("line %d destination %d: %w", i, line.Destination, ErrInvalidOperand)
		}
		for j, op := range line.Operands {
			if op.Index < 0 || op.Index >= p.addressSpace(op.Source, dataSize) {
				return fmt.Errorf("line %d operand %d (%s[%d]): %w", i, j, op.Source, op.Index, ErrInvalidOperand)
			}
		}
	}
	return nil
}

func (p *Program) addressSpace(src Source, dataSize int) int {
	switch src {
	case SourceRegister:
		return p.NbRegisters
	case SourceData:
		return dataSize
	case SourceConstant:
		return len(p.Constants)
	default:
		return 0
	}
}

// Execute runs the program over data and returns the content of register 0.
// Non-finite results are reported as negative infinity so they never win a bid.
func (p *Program) Execute(set Set, data []float64) (float64, error) {
	if p.NbRegisters <= 0 {
		return math.Inf(-1), nil
	}
	registers, bank := pool.GetRegisters(p.NbRegisters)
	defer pool.PutRegisters(bank)
	for i, line := range p.Lines {
		if line.Instruction < 0 || line.Instruction >= len(set) {
			return 0, fmt.Errorf("line %d: %w: %d", i, ErrInvalidInstruction, line.Instruction)
		}
		if line.Destination < 0 || line.Destination >= len(registers) {
			return 0, fmt.Errorf("line %d destination %d: %w", i, line.Destination, ErrInvalidOperand)
		}
		var args [2]float64
		for j, op := range line.Operands {
			v, err := p.read(op, registers, data)
			if err != nil {
				return 0, fmt.Errorf("line %d operand %d: %w", i, j, err)
			}
			args[j] = v
		}
		registers[line.Destination] = set[line.Instruction].Fn(args[0], args[1])
	}
	result := registers[0]
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return math.Inf(-1), nil
	}
	return result, nil
}

func (p *Program) read(op Operand, registers, data []float64) (float64, error) {
	var space []float64
	switch op.Source {
	case SourceRegister:
		space = registers
	case SourceData:
		space = data
	case SourceConstant:
		space = p.Constants
	}
	if op.Index < 0 || op.Index >= len(space) {
		return 0, fmt.Errorf("%s[%d]: %w", op.Source, op.Index, ErrInvalidOperand)
	}
	return space[op.Index], nil
}

package mutator

import (
	"github.com/BaSui01/fedtpg/program"
)

// RandomProgram creates a program of 1..MaxProgramSize random lines.
func RandomProgram(params ProgramParameters, set program.Set, dataSize int, rng *RNG) *program.Program {
	p := &program.Program{NbRegisters: params.NbRegisters}
	if params.NbConstants > 0 {
		p.Constants = make([]float64, params.NbConstants)
		for i := range p.Constants {
			p.Constants[i] = rng.Double(params.MinConstValue, params.MaxConstValue)
		}
	}
	nbLines := rng.Int(1, params.MaxProgramSize)
	for i := 0; i < nbLines; i++ {
		p.Lines = append(p.Lines, randomLine(p, set, dataSize, rng))
	}
	return p
}

func randomLine(p *program.Program, set program.Set, dataSize int, rng *RNG) program.Line {
	line := program.Line{
		Instruction: rng.Int(0, len(set)-1),
		Destination: rng.Int(0, p.NbRegisters-1),
	}
	for i := range line.Operands {
		line.Operands[i] = randomOperand(p, dataSize, rng)
	}
	return line
}

func randomOperand(p *program.Program, dataSize int, rng *RNG) program.Operand {
	sources := []program.Source{program.SourceRegister}
	sizes := []int{p.NbRegisters}
	if dataSize > 0 {
		sources = append(sources, program.SourceData)
		sizes = append(sizes, dataSize)
	}
	if len(p.Constants) > 0 {
		sources = append(sources, program.SourceConstant)
		sizes = append(sizes, len(p.Constants))
	}
	i := rng.Int(0, len(sources)-1)
	return program.Operand{Source: sources[i], Index: rng.Int(0, sizes[i]-1)}
}

// MutateProgram alters p in place: line deletion, addition, mutation, swap
// and constant mutation, each with its own probability. When none of them
// fires, one line is redrawn.
func MutateProgram(p *program.Program, params ProgramParameters, set program.Set, dataSize int, rng *RNG) {
	changed := false

	if len(p.Lines) > 1 && rng.Bool(params.PDelete) {
		i := rng.Int(0, len(p.Lines)-1)
		p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
		changed = true
	}

	if len(p.Lines) < params.MaxProgramSize && rng.Bool(params.PAdd) {
		i := rng.Int(0, len(p.Lines))
		p.Lines = append(p.Lines, program.Line{})
		copy(p.Lines[i+1:], p.Lines[i:])
		p.Lines[i] = randomLine(p, set, dataSize, rng)
		changed = true
	}

	if len(p.Lines) > 0 && rng.Bool(params.PMutate) {
		mutateLine(p, rng.Int(0, len(p.Lines)-1), set, dataSize, rng)
		changed = true
	}

	if len(p.Lines) > 1 && rng.Bool(params.PSwap) {
		i := rng.Int(0, len(p.Lines)-1)
		j := rng.Int(0, len(p.Lines)-1)
		p.Lines[i], p.Lines[j] = p.Lines[j], p.Lines[i]
		changed = changed || i != j
	}

	if len(p.Constants) > 0 && rng.Bool(params.PConstantMutation) {
		p.Constants[rng.Int(0, len(p.Constants)-1)] = rng.Double(params.MinConstValue, params.MaxConstValue)
		changed = true
	}

	if !changed {
		if len(p.Lines) == 0 {
			p.Lines = append(p.Lines, randomLine(p, set, dataSize, rng))
			return
		}
		mutateLine(p, rng.Int(0, len(p.Lines)-1), set, dataSize, rng)
	}
}

// mutateLine redraws one field of the line at index i.
func mutateLine(p *program.Program, i int, set program.Set, dataSize int, rng *RNG) {
	line := &p.Lines[i]
	switch rng.Int(0, 2) {
	case 0:
		line.Instruction = rng.Int(0, len(set)-1)
	case 1:
		line.Destination = rng.Int(0, p.NbRegisters-1)
	default:
		line.Operands[rng.Int(0, 1)] = randomOperand(p, dataSize, rng)
	}
}

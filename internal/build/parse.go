package build

import "strings"

// A single parsed build instruction.
type Instruction struct {
	Verb string // Upper-cased instruction verb (e.g. "FROM").
	Args string // Remainder of the instruction line, trimmed.
}

// The original source line, reassembled.
func (in Instruction) String() string {
	if in.Args == "" {
		return in.Verb
	}
	return in.Verb + " " + in.Args
}

// Parses build file source into an ordered instruction sequence.
//
// Blank lines and comment lines (prefix '#') are skipped. Order is
// preserved exactly; each layer's output can depend on the filesystem
// state left by the previous one, so the sequence is never reordered.
func ParseInstructions(src string) []Instruction {
	var instructions []Instruction

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		verb, args, _ := strings.Cut(line, " ")
		instructions = append(instructions, Instruction{
			Verb: strings.ToUpper(verb),
			Args: strings.TrimSpace(args),
		})
	}

	return instructions
}

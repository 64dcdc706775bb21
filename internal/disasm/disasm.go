// Package disasm defines a common instruction representation and the x86
// decoder that produces it.
package disasm

// Inst is a simplified decoded instruction.
type Inst struct {
	VA   uint64 // address of instruction (base + offset into the decoded range)
	Len  int    // encoded length in bytes
	Raw  []byte // raw encoding
	Text string // formatted disassembly string
	Op   string // mnemonic in lowercase
}

// Stream is a linear sequence of instructions.
type Stream []Inst

package disasm

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// DefaultMode is the bit width used when none is configured.
const DefaultMode = 64

// Syntax selects how instructions are rendered and therefore how mnemonics are spelled.
type Syntax string

const (
	SyntaxIntel Syntax = "intel"
	SyntaxGNU   Syntax = "gnu"
)

// ParseSyntax maps a flag value to a Syntax.
func ParseSyntax(s string) (Syntax, error) {
	switch Syntax(strings.ToLower(s)) {
	case "", SyntaxIntel:
		return SyntaxIntel, nil
	case SyntaxGNU, "att":
		return SyntaxGNU, nil
	}
	return "", fmt.Errorf("unknown syntax %q (want intel or gnu)", s)
}

var (
	// ErrDecode indicates the decoder could not process the byte range.
	ErrDecode = errors.New("decode error")

	errUnrecognized = errors.New("unrecognized instruction")
	errPrefixOnly   = errors.New("prefix without a valid opcode")
)

// DecodeError reports the first position the decoder could not handle.
type DecodeError struct {
	Offset    uint64 // offset into the decoded range
	VA        uint64
	Remaining int // bytes left undecoded from Offset to the end of the range
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset 0x%x (address 0x%x): %v", e.Offset, e.VA, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// UnsupportedModeError indicates an x86 bit width the decoder does not support.
type UnsupportedModeError struct {
	Mode int
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported x86 mode: %d (want 16, 32 or 64)", e.Mode)
}

func (e *UnsupportedModeError) Is(target error) bool { return target == ErrDecode }

// foldedPrefixes are kept in the mnemonic ("rep stos", "lock cmpxchg").
var foldedPrefixes = map[string]bool{
	"lock": true, "rep": true, "repe": true, "repz": true, "repne": true, "repnz": true,
	"xacquire": true, "xrelease": true, "bnd": true, "notrack": true,
}

// encodingPrefixes only change operand size, address size, segment or REX
// bits and are dropped from the mnemonic.
var encodingPrefixes = map[string]bool{
	"data16": true, "data32": true, "addr16": true, "addr32": true,
	"cs": true, "ds": true, "es": true, "fs": true, "gs": true, "ss": true,
}

// X86Decoder decodes x86 machine code with golang.org/x/arch.
type X86Decoder struct {
	mode   int
	syntax Syntax
}

// NewX86Decoder creates an X86Decoder for the given bit width (16, 32 or 64).
func NewX86Decoder(mode int, syntax Syntax) (*X86Decoder, error) {
	switch mode {
	case 16, 32, 64:
	default:
		return nil, &UnsupportedModeError{Mode: mode}
	}
	if syntax == "" {
		syntax = SyntaxIntel
	}
	return &X86Decoder{mode: mode, syntax: syntax}, nil
}

// DecodeAll decodes code from start to end. base is the address given to the
// first byte and only influences Inst.VA and PC-relative operands.
//
// Decoding stops at the first position that is not a complete, valid
// instruction. The instructions before it are returned together with a
// *DecodeError, so callers choose between failing and a partial stream.
func (d *X86Decoder) DecodeAll(code []byte, base uint64) (Stream, error) {
	stream := make(Stream, 0, len(code)/3)
	for off := 0; off < len(code); {
		pc := base + uint64(off)

		inst, err := x86asm.Decode(code[off:], d.mode)
		if err == nil {
			switch {
			case inst.Len == 0:
				err = errUnrecognized
			case inst.Op == 0:
				// x86asm reports a prefix followed by an unknown opcode as a
				// one-byte instruction made of the prefix alone.
				err = errPrefixOnly
			}
		}
		if err != nil {
			return stream, &DecodeError{Offset: uint64(off), VA: pc, Remaining: len(code) - off, Err: err}
		}

		text := d.format(inst, pc)
		stream = append(stream, Inst{
			VA:   pc,
			Len:  inst.Len,
			Raw:  code[off : off+inst.Len],
			Text: text,
			Op:   Mnemonic(text),
		})
		off += inst.Len
	}
	return stream, nil
}

func (d *X86Decoder) format(inst x86asm.Inst, pc uint64) string {
	if d.syntax == SyntaxGNU {
		return x86asm.GNUSyntax(inst, pc, nil)
	}
	return x86asm.IntelSyntax(inst, pc, nil)
}

// Mnemonic extracts the lowercase mnemonic from a formatted instruction.
// Lock and repeat prefixes stay part of it ("rep stosq", "lock cmpxchg");
// size, segment and REX prefixes are dropped ("data16 nop" is "nop").
func Mnemonic(text string) string {
	var words []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		switch {
		case encodingPrefixes[f], strings.HasPrefix(f, "rex"):
			continue
		case foldedPrefixes[f]:
			words = append(words, f)
			continue
		}
		words = append(words, f)
		break
	}
	return strings.Join(words, " ")
}

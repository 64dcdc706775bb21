// Package analysis turns an ELF code section into an instruction-frequency report.
// It ties together section lookup, hashing, decoding and counting.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"elfstat/internal/disasm"
	"elfstat/internal/elfx"
)

// DefaultSymbol is the symbol reported in the diagnostics when none is configured.
const DefaultSymbol = "main"

// AddressMode chooses the address assigned to the first byte of the section.
type AddressMode string

const (
	// AddressOffset uses the section's file offset, so listed addresses are file-relative.
	AddressOffset AddressMode = "offset"
	// AddressVA uses the section's sh_addr, the load address intended by the linker.
	AddressVA AddressMode = "vaddr"
)

// ParseAddressMode maps a flag value to an AddressMode.
func ParseAddressMode(s string) (AddressMode, error) {
	switch AddressMode(strings.ToLower(s)) {
	case "", AddressOffset:
		return AddressOffset, nil
	case AddressVA, "va":
		return AddressVA, nil
	}
	return "", fmt.Errorf("unknown address mode %q (want offset or vaddr)", s)
}

// Request names the file to analyze.
type Request struct {
	Path string
}

// Options configures a run. The zero value analyzes .text as 64-bit x86 in
// Intel syntax with file-offset addresses, failing on the first undecodable
// instruction. Partial instead stops decoding there and reports the
// instructions before it. A non-empty RunID is attached to every diagnostic
// of the run.
type Options struct {
	Section string
	Mode    int
	Syntax  disasm.Syntax
	Address AddressMode
	Partial bool
	Symbol  string
	Logger  *slog.Logger
	RunID   string
}

func (o Options) logger() *slog.Logger {
	lg := o.Logger
	if lg == nil {
		lg = slog.Default()
	}
	if o.RunID != "" {
		lg = lg.With("run", o.RunID)
	}
	return lg
}

// Analysis carries the Result together with the intermediate products of a run.
// Stopped is set when a partial run ended at an undecodable instruction.
type Analysis struct {
	Result  *Result
	Section elfx.Section
	Base    uint64
	Stream  disasm.Stream
	Stopped *disasm.DecodeError
}

// Run analyzes req and returns the report. On any error no Result is returned.
func Run(req Request, opts Options) (*Result, error) {
	a, err := Analyze(req, opts)
	if err != nil {
		return nil, err
	}
	return a.Result, nil
}

// Analyze runs the whole pipeline: open, locate section, hash, decode, count.
func Analyze(req Request, opts Options) (*Analysis, error) {
	lg := opts.logger()

	mode := opts.Mode
	if mode == 0 {
		mode = disasm.DefaultMode
	}
	dec, err := disasm.NewX86Decoder(mode, opts.Syntax)
	if err != nil {
		return nil, err
	}

	lg.Info("Analyzing", "file", req.Path, "partial", opts.Partial)

	img, err := elfx.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	defer img.Close()

	sec, err := img.CodeSection(opts.Section)
	if err != nil {
		return nil, err
	}
	lg.Info("Code section located",
		"section", sec.Name,
		"offset", fmt.Sprintf("0x%x", sec.Off),
		"size", fmt.Sprintf("0x%x", sec.Size))

	symbol := opts.Symbol
	if symbol == "" {
		symbol = DefaultSymbol
	}
	logSymbol(lg, img, symbol)

	digest := Digest(img.All)
	lg.Info("Digest computed", "sha256", digest)

	code, err := img.SectionBytes(sec)
	if err != nil {
		return nil, err
	}

	base := sec.Off
	if opts.Address == AddressVA {
		base = sec.VA
	}

	var stopped *disasm.DecodeError
	stream, err := dec.DecodeAll(code, base)
	if err != nil {
		if !opts.Partial || !errors.As(err, &stopped) {
			return nil, fmt.Errorf("failed to disassemble %s: %w", sec.Name, err)
		}
		lg.Warn("Stopped at undecodable instruction",
			"offset", fmt.Sprintf("0x%x", stopped.Offset),
			"address", fmt.Sprintf("0x%x", stopped.VA),
			"remaining", stopped.Remaining,
			"error", stopped.Err)
	}
	lg.Info("Found instructions", "count", len(stream))

	tally := NewTally()
	tally.Count(stream)

	return &Analysis{
		Result: &Result{
			Filename:         req.Path,
			SHA256:           digest,
			InstructionCount: len(stream),
			Instructions:     tally,
		},
		Section: sec,
		Base:    base,
		Stream:  stream,
		Stopped: stopped,
	}, nil
}

// logSymbol reports where the named symbol lives. Missing symbol tables are
// not an error.
func logSymbol(lg *slog.Logger, img *elfx.Image, name string) {
	syms, err := img.Symbols()
	if err != nil {
		if errors.Is(err, elfx.ErrNoSymbolTable) {
			lg.Info("Symbol table was stripped, skipping symbol lookup")
			return
		}
		lg.Warn("Failed to read symbol table", "error", err)
		return
	}
	lg.Debug("Symbol table was included", "symbols", len(syms))

	sym, ok := elfx.FindSymbol(syms, name)
	if !ok {
		lg.Info("Symbol not found", "symbol", name)
		return
	}
	lg.Info("Symbol located",
		"symbol", name,
		"section", int(sym.Section),
		"offset", fmt.Sprintf("0x%x", sym.Value),
		"size", fmt.Sprintf("0x%x", sym.Size))
}

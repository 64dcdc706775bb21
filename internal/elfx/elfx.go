// Package elfx provides helpers for opening ELF binaries, locating sections, and reading symbols.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"github.com/ianlancetaylor/demangle"
)

// DefaultCodeSection is the section analyzed when the caller does not name one.
const DefaultCodeSection = ".text"

// Image is an opened ELF file together with its raw contents.
type Image struct {
	File *elf.File
	All  []byte
}

// Section describes where a named section lives on disk and in memory.
type Section struct {
	Name          string
	VA, Off, Size uint64
	NoBits        bool
}

// Symbol is an entry of the static symbol table.
type Symbol struct {
	Name    string
	Section elf.SectionIndex
	Value   uint64
	Size    uint64
}

// Open parses the ELF container at path and reads the whole file into memory.
// The returned Image must be closed by the caller.
func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainer, err)
	}

	all, err := os.ReadFile(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read file: %w", ErrIO, err)
	}

	return &Image{File: f, All: all}, nil
}

// Close releases the underlying ELF file.
func (im *Image) Close() error {
	im.All = nil
	if im.File == nil {
		return nil
	}
	err := im.File.Close()
	im.File = nil
	return err
}

// Section returns the section with exactly the given name.
func (im *Image) Section(name string) (Section, bool) {
	if im.File == nil {
		return Section{}, false
	}
	s := im.File.Section(name)
	if s == nil {
		return Section{}, false
	}
	return Section{
		Name:   s.Name,
		VA:     s.Addr,
		Off:    s.Offset,
		Size:   s.Size,
		NoBits: s.Type == elf.SHT_NOBITS,
	}, true
}

// CodeSection is Section with a typed error for a missing section.
func (im *Image) CodeSection(name string) (Section, error) {
	if name == "" {
		name = DefaultCodeSection
	}
	sec, ok := im.Section(name)
	if !ok {
		return Section{}, &SectionNotFoundError{Name: name}
	}
	return sec, nil
}

// SectionBytes returns the bytes [Off, Off+Size) of the in-memory file.
// NOBITS sections occupy no file space and yield an empty slice.
func (im *Image) SectionBytes(sec Section) ([]byte, error) {
	if sec.NoBits || sec.Size == 0 {
		return []byte{}, nil
	}
	fileLen := uint64(len(im.All))
	end := sec.Off + sec.Size
	if end < sec.Off || end > fileLen {
		return nil, &BoundsError{Section: sec.Name, Off: sec.Off, Size: sec.Size, FileLen: fileLen}
	}
	return im.All[sec.Off:end], nil
}

// Symbols returns the entries of .symtab. A stripped binary yields ErrNoSymbolTable.
func (im *Image) Symbols() ([]Symbol, error) {
	if im.File == nil {
		return nil, ErrNoSymbolTable
	}

	syms, err := im.File.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, ErrNoSymbolTable
		}
		return nil, fmt.Errorf("read symbol table: %w", err)
	}

	out := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, Symbol{
			Name:    sym.Name,
			Section: sym.Section,
			Value:   sym.Value,
			Size:    sym.Size,
		})
	}
	return out, nil
}

// FindSymbol searches syms for name, comparing against both the raw and the
// demangled symbol name. Defined symbols win over undefined ones.
func FindSymbol(syms []Symbol, name string) (Symbol, bool) {
	var fallback *Symbol
	for i := range syms {
		sym := &syms[i]
		if sym.Name != name && demangle.Filter(sym.Name, demangle.NoParams) != name {
			continue
		}
		if sym.Section != elf.SHN_UNDEF {
			return *sym, true
		}
		if fallback == nil {
			fallback = sym
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Symbol{}, false
}

package elfx

import (
	"errors"
	"fmt"
)

var (
	// ErrContainer indicates the file is missing, unreadable or not a valid ELF container.
	ErrContainer = errors.New("invalid ELF container")

	// ErrSectionNotFound indicates the requested code section is absent.
	ErrSectionNotFound = errors.New("section not found")

	// ErrIO indicates the file bytes could not be read after the container was opened,
	// or a section points outside of them.
	ErrIO = errors.New("read error")

	// ErrNoSymbolTable indicates the ELF file has no symbol table (possibly stripped).
	ErrNoSymbolTable = errors.New("ELF file has no symbol table")
)

// SectionNotFoundError names the section that could not be located.
type SectionNotFoundError struct {
	Name string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("failed to look up %s section", e.Name)
}

func (e *SectionNotFoundError) Is(target error) bool {
	return target == ErrSectionNotFound
}

// BoundsError reports a section whose byte range does not fit in the file.
type BoundsError struct {
	Section   string
	Off, Size uint64
	FileLen   uint64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("section %s [0x%x, +0x%x) exceeds file length 0x%x", e.Section, e.Off, e.Size, e.FileLen)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrIO
}

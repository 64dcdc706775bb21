// Package elfxtest builds small synthetic ELF64 files for tests.
package elfxtest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TextAddr is the virtual address assigned to the code section.
const TextAddr = 0x401000

// Sym is a symbol written to .symtab. It is placed in the code section.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
}

// Spec describes the file to build. SectionName defaults to ".text" and Machine
// to EM_X86_64. A nil Symbols slice produces a stripped file with no .symtab.
type Spec struct {
	SectionName string
	Code        []byte
	Symbols     []Sym
	Machine     elf.Machine
}

type shdr struct {
	name string
	hdr  elf.Section64
	data []byte
}

// Build serializes spec to an in-memory ELF64 little-endian relocatable image.
func Build(spec Spec) []byte {
	if spec.SectionName == "" {
		spec.SectionName = ".text"
	}
	if spec.Machine == elf.EM_NONE {
		spec.Machine = elf.EM_X86_64
	}

	sections := []shdr{
		{name: ""},
		{
			name: spec.SectionName,
			hdr: elf.Section64{
				Type:      uint32(elf.SHT_PROGBITS),
				Flags:     uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
				Addr:      TextAddr,
				Addralign: 16,
			},
			data: spec.Code,
		},
	}

	if spec.Symbols != nil {
		strtab := []byte{0}
		var sb bytes.Buffer
		_ = binary.Write(&sb, binary.LittleEndian, elf.Sym64{})
		for _, s := range spec.Symbols {
			sym := elf.Sym64{
				Name:  uint32(len(strtab)),
				Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
				Shndx: 1,
				Value: s.Value,
				Size:  s.Size,
			}
			strtab = append(strtab, s.Name...)
			strtab = append(strtab, 0)
			_ = binary.Write(&sb, binary.LittleEndian, sym)
		}

		symIdx := len(sections)
		sections = append(sections,
			shdr{
				name: ".symtab",
				hdr: elf.Section64{
					Type:      uint32(elf.SHT_SYMTAB),
					Link:      uint32(symIdx + 1),
					Info:      1,
					Addralign: 8,
					Entsize:   elf.Sym64Size,
				},
				data: sb.Bytes(),
			},
			shdr{
				name: ".strtab",
				hdr:  elf.Section64{Type: uint32(elf.SHT_STRTAB), Addralign: 1},
				data: strtab,
			},
		)
	}

	shstrtab := []byte{0}
	sections = append(sections, shdr{
		name: ".shstrtab",
		hdr:  elf.Section64{Type: uint32(elf.SHT_STRTAB), Addralign: 1},
	})
	shstrndx := len(sections) - 1
	for i := 1; i < len(sections); i++ {
		sections[i].hdr.Name = uint32(len(shstrtab))
		shstrtab = append(shstrtab, sections[i].name...)
		shstrtab = append(shstrtab, 0)
	}
	sections[shstrndx].data = shstrtab

	const ehsize = 64
	var body bytes.Buffer
	off := uint64(ehsize)
	for i := 1; i < len(sections); i++ {
		for off%8 != 0 {
			body.WriteByte(0)
			off++
		}
		sections[i].hdr.Off = off
		sections[i].hdr.Size = uint64(len(sections[i].data))
		body.Write(sections[i].data)
		off += uint64(len(sections[i].data))
	}
	for off%8 != 0 {
		body.WriteByte(0)
		off++
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(spec.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     off,
		Ehsize:    ehsize,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrndx),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	for _, s := range sections {
		_ = binary.Write(&out, binary.LittleEndian, s.hdr)
	}
	return out.Bytes()
}

// WriteFile builds spec into a file under t.TempDir and returns its path.
func WriteFile(t *testing.T, name string, spec Spec) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, Build(spec), 0o644))
	return path
}

// WriteRaw writes arbitrary bytes to a file under t.TempDir and returns its path.
func WriteRaw(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

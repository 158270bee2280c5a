// Package elf loads an ELF64 executable image for execve: it validates
// the header (magic, class, endianness, machine), walks PT_LOAD
// program headers, and reports the segments and entry auxval that the
// caller must map and populate.
package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"hyra/defs"
)

// Auxval tags placed on the new user stack, matching the auxv set
// execve is required to populate.
const (
	AT_ENTRY = iota
	AT_PHDR
	AT_PHENT
	AT_PHNUM
	AT_PAGESIZE
	AT_EXECFN
)

/// Segment_t is one PT_LOAD program header, reduced to what a caller
/// needs to allocate and populate physical memory for it.
type Segment_t struct {
	Vaddr  uintptr
	Memsz  uintptr
	Filesz uintptr
	Off    int64
	Flags  elf.ProgFlag
}

/// Image_t is a validated, parsed ELF64 executable ready for loading.
type Image_t struct {
	Entry    uintptr
	Phdr     uintptr
	Phent    int
	Phnum    int
	Segments []Segment_t
}

/// Load parses raw, validates it as a little-endian x86-64 ET_EXEC
/// ELF64 binary, and returns its loadable image description.
func Load(raw []byte) (*Image_t, defs.Err_t) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, defs.ENOEXEC
	}
	if err := validate(&f.FileHeader); err != 0 {
		return nil, err
	}

	img := &Image_t{Entry: uintptr(f.Entry)}
	for _, prog := range f.Progs {
		switch prog.Type {
		case elf.PT_LOAD:
			img.Segments = append(img.Segments, Segment_t{
				Vaddr:  uintptr(prog.Vaddr),
				Memsz:  uintptr(prog.Memsz),
				Filesz: uintptr(prog.Filesz),
				Off:    int64(prog.Off),
				Flags:  prog.Flags,
			})
		case elf.PT_PHDR:
			img.Phdr = uintptr(prog.Vaddr)
		}
	}
	img.Phent = int(binary.Size(elf.Prog64{}))
	img.Phnum = len(f.Progs)
	return img, 0
}

func validate(eh *elf.FileHeader) defs.Err_t {
	if eh.Class != elf.ELFCLASS64 {
		return defs.ENOEXEC
	}
	if eh.Data != elf.ELFDATA2LSB {
		return defs.ENOEXEC
	}
	if eh.Type != elf.ET_EXEC {
		return defs.ENOEXEC
	}
	if eh.Machine != elf.EM_X86_64 {
		return defs.ENOEXEC
	}
	return 0
}

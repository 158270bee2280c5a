package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

func buildMinimalExec(t *testing.T, machine uint16, class uint8, typ uint16) []byte {
	t.Helper()
	const ehsize = 64
	const phentsize = 56

	hdr := elf.Header64{
		Type:      typ,
		Machine:   machine,
		Version:   1,
		Entry:     0x401000,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     2,
	}
	hdr.Ident[0] = 0x7f
	hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 'E', 'L', 'F'
	hdr.Ident[elf.EI_CLASS] = class
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = 1

	phdrOff := uint64(ehsize)
	loadOff := phdrOff + 2*phentsize

	phdr := elf.Prog64{
		Type:   uint32(elf.PT_PHDR),
		Flags:  uint32(elf.PF_R),
		Off:    phdrOff,
		Vaddr:  0x400000 + phdrOff,
		Paddr:  0x400000 + phdrOff,
		Filesz: 2 * phentsize,
		Memsz:  2 * phentsize,
		Align:  8,
	}
	load := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    loadOff,
		Vaddr:  0x401000,
		Paddr:  0x401000,
		Filesz: 16,
		Memsz:  16,
		Align:  0x1000,
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &hdr)
	binary.Write(&buf, binary.LittleEndian, &phdr)
	binary.Write(&buf, binary.LittleEndian, &load)
	buf.Write(make([]byte, 16))
	return buf.Bytes()
}

func TestLoadAcceptsValidExec(t *testing.T) {
	raw := buildMinimalExec(t, uint16(elf.EM_X86_64), uint8(elf.ELFCLASS64), uint16(elf.ET_EXEC))
	img, err := Load(raw)
	if err != 0 {
		t.Fatalf("Load: %v", err)
	}
	if img.Entry != 0x401000 {
		t.Fatalf("unexpected entry %#x", img.Entry)
	}
	if len(img.Segments) != 1 || img.Segments[0].Vaddr != 0x401000 {
		t.Fatalf("unexpected segments %+v", img.Segments)
	}
	if img.Phnum != 2 {
		t.Fatalf("expected 2 program headers, got %d", img.Phnum)
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	raw := buildMinimalExec(t, uint16(elf.EM_ARM), uint8(elf.ELFCLASS64), uint16(elf.ET_EXEC))
	if _, err := Load(raw); err == 0 {
		t.Fatal("expected non-x86-64 binary to be rejected")
	}
}

func TestLoadRejectsWrong32BitClass(t *testing.T) {
	raw := buildMinimalExec(t, uint16(elf.EM_X86_64), uint8(elf.ELFCLASS32), uint16(elf.ET_EXEC))
	if _, err := Load(raw); err == 0 {
		t.Fatal("expected 32-bit binary to be rejected")
	}
}

func TestLoadRejectsNonExecutable(t *testing.T) {
	raw := buildMinimalExec(t, uint16(elf.EM_X86_64), uint8(elf.ELFCLASS64), uint16(elf.ET_DYN))
	if _, err := Load(raw); err == 0 {
		t.Fatal("expected non-ET_EXEC binary to be rejected")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load([]byte("not an elf")); err == 0 {
		t.Fatal("expected garbage input to be rejected")
	}
}

// Package sonamepatch rewrites the DT_SONAME of an ELF shared object in
// place. The dynamic loader deduplicates already-loaded libraries by soname,
// so giving each copy a distinct name defeats that cache and forces a real
// reload.
//
// Only the leading bytes of the existing soname are overwritten (for a
// conventional "libfoo.so" this replaces the "lib" prefix), so string-table
// offsets and every other byte of the object are preserved.
package sonamepatch

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

// TagLen is the exact length of a soname tag.
const TagLen = 3

var (
	ErrNoSoname = errors.New("sonamepatch: object has no DT_SONAME entry")
	ErrBadTag   = errors.New("sonamepatch: tag must be exactly 3 bytes with no NUL")
)

// Rewrite overwrites the first TagLen bytes of data's soname with tag,
// modifying data in place. data must be a complete ELF shared object image.
func Rewrite(data []byte, tag string) error {
	if len(tag) != TagLen || bytes.IndexByte([]byte(tag), 0) >= 0 {
		return ErrBadTag
	}

	offset, err := sonameOffset(data)
	if err != nil {
		return err
	}
	if offset+TagLen > uint64(len(data)) {
		return fmt.Errorf("sonamepatch: soname offset %#x out of range", offset)
	}
	// The existing soname must be at least as long as the tag or the
	// overwrite would clobber its terminator and the following string.
	for i := 0; i < TagLen; i++ {
		if data[offset+uint64(i)] == 0 {
			return fmt.Errorf("sonamepatch: soname shorter than %d bytes", TagLen)
		}
	}

	copy(data[offset:], tag)
	return nil
}

// sonameOffset returns the file offset of the soname string.
func sonameOffset(data []byte) (uint64, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("sonamepatch: parse ELF: %w", err)
	}
	defer f.Close()

	dynamic := f.SectionByType(elf.SHT_DYNAMIC)
	if dynamic == nil {
		return 0, ErrNoSoname
	}
	if dynamic.Link >= uint32(len(f.Sections)) {
		return 0, fmt.Errorf("sonamepatch: dynamic section links to invalid string table %d", dynamic.Link)
	}
	strtab := f.Sections[dynamic.Link]

	raw, err := dynamic.Data()
	if err != nil {
		return 0, fmt.Errorf("sonamepatch: read dynamic section: %w", err)
	}

	index, err := sonameIndex(raw, f.Class, f.ByteOrder)
	if err != nil {
		return 0, err
	}
	if index >= strtab.Size {
		return 0, fmt.Errorf("sonamepatch: soname index %#x beyond string table", index)
	}
	return strtab.Offset + index, nil
}

// sonameIndex walks the dynamic entries for DT_SONAME and returns its value,
// the soname's index into the linked string table.
func sonameIndex(raw []byte, class elf.Class, order binary.ByteOrder) (uint64, error) {
	switch class {
	case elf.ELFCLASS64:
		for len(raw) >= 16 {
			tag := elf.DynTag(order.Uint64(raw[0:8]))
			val := order.Uint64(raw[8:16])
			if tag == elf.DT_NULL {
				break
			}
			if tag == elf.DT_SONAME {
				return val, nil
			}
			raw = raw[16:]
		}
	case elf.ELFCLASS32:
		for len(raw) >= 8 {
			tag := elf.DynTag(order.Uint32(raw[0:4]))
			val := order.Uint32(raw[4:8])
			if tag == elf.DT_NULL {
				break
			}
			if tag == elf.DT_SONAME {
				return uint64(val), nil
			}
			raw = raw[8:]
		}
	default:
		return 0, fmt.Errorf("sonamepatch: unsupported ELF class %v", class)
	}
	return 0, ErrNoSoname
}

// Package trampoline locates the tail-call target of small dynamic-loader
// trampoline functions by scanning a short window of their machine code.
//
// Bionic's public dlopen is a thin wrapper that forwards to an unexported
// __loader_dlopen, passing its own return address as the caller identity.
// The wrapper's first branch-with-link instruction therefore points at the
// internal function, which has no dynamic symbol of its own.
package trampoline

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

// WindowWords bounds the scan. Loader trampolines are a handful of
// instructions; anything beyond this means we are walking unrelated code.
const WindowWords = 16

const wordSize = 4

// blSignature is the fixed top-6-bit opcode of an AArch64 BL instruction.
const blSignature = 0x25

var (
	ErrNotFound     = errors.New("trampoline: no branch-with-link in scan window")
	ErrArchitecture = errors.New("trampoline: unsupported architecture")
)

// FindIn scans code word-by-word for the first BL instruction and returns
// the absolute address it branches to. pc is the address code begins at.
// code is interpreted as little-endian AArch64 text; scanning stops at the
// end of the slice or after WindowWords instructions, whichever is first.
func FindIn(code []byte, pc uint64) (uint64, error) {
	limit := len(code) / wordSize
	if limit > WindowWords {
		limit = WindowWords
	}

	for i := 0; i < limit; i++ {
		word := binary.LittleEndian.Uint32(code[i*wordSize:])
		if word>>26 != blSignature {
			continue
		}

		inst, err := arm64asm.Decode(code[i*wordSize : (i+1)*wordSize])
		if err != nil || inst.Op != arm64asm.BL {
			continue
		}
		rel, ok := inst.Args[0].(arm64asm.PCRel)
		if !ok {
			continue
		}
		return pc + uint64(i*wordSize) + uint64(int64(rel)), nil
	}
	return 0, fmt.Errorf("%w (scanned %d words)", ErrNotFound, limit)
}

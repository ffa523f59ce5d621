package trampoline

import (
	"encoding/binary"
	"errors"
	"testing"
)

const (
	nopWord = 0xd503201f
	// mov x3, x30 — the instruction bionic's dlopen uses to capture its
	// return address before branching.
	movX3LR = 0xaa1e03e3
)

func encodeBL(offsetWords int32) uint32 {
	return 0x94000000 | (uint32(offsetWords) & 0x03ffffff)
}

func encodeB(offsetWords int32) uint32 {
	return 0x14000000 | (uint32(offsetWords) & 0x03ffffff)
}

func buildCode(words ...uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestFindInLocatesBranchLinked(t *testing.T) {
	const base = 0x7f0000_1000

	code := buildCode(movX3LR, nopWord, encodeBL(5))
	target, err := FindIn(code, base)
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	want := uint64(base + 2*4 + 5*4)
	if target != want {
		t.Fatalf("unexpected target: got %#x want %#x", target, want)
	}
}

func TestFindInDecodesNegativeOffset(t *testing.T) {
	const base = 0x5500_8000

	code := buildCode(nopWord, encodeBL(-16))
	target, err := FindIn(code, base)
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	want := uint64(base + 1*4 - 16*4)
	if target != want {
		t.Fatalf("unexpected target: got %#x want %#x", target, want)
	}
}

func TestFindInSkipsPlainBranch(t *testing.T) {
	const base = 0x1000

	// An unconditional B shares the low opcode layout with BL but has a
	// different signature; it must not terminate the scan.
	code := buildCode(encodeB(2), encodeBL(3))
	target, err := FindIn(code, base)
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	want := uint64(base + 1*4 + 3*4)
	if target != want {
		t.Fatalf("scan stopped on the wrong branch: got %#x want %#x", target, want)
	}
}

func TestFindInBoundedWindowMiss(t *testing.T) {
	words := make([]uint32, WindowWords+8)
	for i := range words {
		words[i] = nopWord
	}
	// A BL beyond the window must not be reached.
	words[WindowWords+2] = encodeBL(1)

	if _, err := FindIn(buildCode(words...), 0x4000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindInShortInput(t *testing.T) {
	if _, err := FindIn(nil, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty code, got %v", err)
	}
	if _, err := FindIn([]byte{0x1f, 0x20}, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for sub-word code, got %v", err)
	}
}

//go:build arm64

package trampoline

import "unsafe"

// FindBranchTarget scans the live instruction stream starting at entry and
// returns the address of the first BL target. entry must be the address of
// executable AArch64 code mapped in this process.
func FindBranchTarget(entry uintptr) (uintptr, error) {
	if entry == 0 {
		return 0, ErrNotFound
	}

	window := make([]byte, WindowWords*wordSize)
	for i := range window {
		window[i] = *(*byte)(unsafe.Pointer(entry + uintptr(i)))
	}

	target, err := FindIn(window, uint64(entry))
	if err != nil {
		return 0, err
	}
	return uintptr(target), nil
}

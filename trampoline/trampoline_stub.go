//go:build !arm64

package trampoline

// FindBranchTarget requires an AArch64 instruction stream; on other
// architectures live scanning is unavailable. FindIn remains usable for
// decoding captured AArch64 code on any host.
func FindBranchTarget(entry uintptr) (uintptr, error) {
	_ = entry
	return 0, ErrArchitecture
}

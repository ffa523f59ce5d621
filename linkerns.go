// Package linkerns creates and links Android linker namespaces from a
// sandboxed process by calling bionic's private loader entry points
// directly, bypassing the classloader-namespace policy imposed on apps.
//
// The public loading API refuses to open platform libraries or to mint
// privileged namespaces for untrusted callers. This package locates the
// internal __loader_dlopen handler by scanning the public dlopen trampoline,
// opens the loader's own private objects with a spoofed caller identity, and
// resolves the unexported namespace entry points from them. On top of that
// it offers LoadUniqueHooked: load a soname-patched, uniquely identified
// copy of a library into an isolated namespace, optionally with a hook
// library injected first.
//
// The live path requires android/arm64 with cgo. Everywhere else the
// package compiles but reports itself unavailable; the pure pieces (the
// instruction scanner and the soname patcher) remain usable on any host.
package linkerns

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrUnavailable means the private loader entry points were never
	// resolved; the whole system is permanently unusable in this process.
	ErrUnavailable = errors.New("linkerns: loader internals unavailable")

	// ErrNamespaceRejected means the loader declined a namespace creation
	// or linking request.
	ErrNamespaceRejected = errors.New("linkerns: namespace operation rejected by loader")

	// ErrHookContract means the hook library and hook parameter did not
	// agree: a parameter with nothing to receive it, or a hook_param
	// symbol with no parameter, or the hook library failed to load.
	ErrHookContract = errors.New("linkerns: hook parameter contract violated")

	// ErrNoBackingFile means no usable file descriptor could be acquired
	// for the patched library copy.
	ErrNoBackingFile = errors.New("linkerns: no usable backing file descriptor")

	// ErrPatchFailed means the soname rewrite on the library copy failed.
	ErrPatchFailed = errors.New("linkerns: soname patch failed")

	// ErrOpenRejected means the loader refused the final namespace-scoped
	// open of the patched copy.
	ErrOpenRejected = errors.New("linkerns: loader rejected patched library")
)

// Namespace is a reference to a loader-owned linker namespace. Namespaces
// are created and retained by the platform loader; this package never
// destroys them (bionic exposes no entry point to do so).
type Namespace struct {
	raw uintptr
}

// Raw returns the loader's opaque namespace pointer.
func (ns *Namespace) Raw() uintptr {
	if ns == nil {
		return 0
	}
	return ns.raw
}

// Library is a handle to a loaded shared object. Ownership transfers to the
// caller on load; the handle is never closed by this package.
type Library struct {
	handle uintptr
	path   string
}

// Handle returns the raw dlopen handle.
func (l *Library) Handle() uintptr { return l.handle }

// Path returns the synthetic descriptor path the library was opened from.
func (l *Library) Path() string { return l.path }

// Mode holds dlopen mode bits (bionic LP64 values).
type Mode int

const (
	ModeLazy     Mode = 0x00001
	ModeNow      Mode = 0x00002
	ModeNoload   Mode = 0x00004
	ModeLocal    Mode = 0
	ModeGlobal   Mode = 0x00100
	ModeNodelete Mode = 0x01000
)

// NamespaceType selects the isolation behavior of a created namespace.
type NamespaceType uint64

const (
	NamespaceRegular  NamespaceType = 0
	NamespaceIsolated NamespaceType = 1
	NamespaceShared   NamespaceType = 2
	// NamespaceSharedIsolated shares the parent's already-loaded libraries
	// while restricting new loads to the permitted paths.
	NamespaceSharedIsolated = NamespaceShared | NamespaceIsolated
)

// LoadOptions configures LoadUniqueHooked.
type LoadOptions struct {
	// LibPath is the shared object to load.
	LibPath string

	// TargetDir, when set, receives the patched copy as a durable
	// "<tag>_patched.so" file. When empty the copy is backed by an
	// anonymous memfd and never touches disk.
	TargetDir string

	// Mode is passed through to the final extended open.
	Mode Mode

	// HookLibDir is the search path of the isolation namespace.
	HookLibDir string

	// HookLibName, when set, is opened into the namespace with global
	// visibility before the target library.
	HookLibName string

	// Parent roots the isolation namespace; nil means the loader default.
	Parent *Namespace

	// LinkToDefault additionally links the isolation namespace against an
	// escaped copy of the platform default namespace so system libraries
	// stay visible.
	LinkToDefault bool

	// HookParam is written into the hook library's hook_param symbol.
	// Supplying it without HookLibName (or with a hook lacking the
	// symbol) is a contract violation.
	HookParam uintptr
}

// targetID numbers every load attempt. 16-bit, never reused within a
// process; wrapping after 65536 loads is an accepted limitation.
var targetID atomic.Uint32

func nextTargetID() uint16 {
	return uint16(targetID.Add(1) - 1)
}

// sonameTag renders the three-digit overwrite payload for an id.
func sonameTag(id uint16) string {
	return fmt.Sprintf("%03d", id%1000)
}

func patchedLibName(tag string) string {
	return tag + "_patched.so"
}

func procFDPath(fd int) string {
	return fmt.Sprintf("/proc/self/fd/%d", fd)
}

// hookParamOrphaned reports a parameter supplied with no hook library to
// carry it.
func hookParamOrphaned(hookLibName string, hookParam uintptr) bool {
	return hookLibName == "" && hookParam != 0
}

// hookParamMismatch reports the asymmetric cases of the hook contract:
// exactly one of {parameter supplied, hook_param symbol present}.
func hookParamMismatch(sym, param uintptr) bool {
	return (sym == 0) != (param == 0)
}

//go:build android && arm64

package linkerns

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sliverarmory/linkerns/sonamepatch"
)

const (
	dlextUseLibraryFD = 0x10
	dlextUseNamespace = 0x200
)

// dlextinfo mirrors bionic's android_dlextinfo (LP64 layout).
type dlextinfo struct {
	flags            uint64
	reservedAddr     uintptr
	reservedSize     uintptr
	relroFD          int32
	libraryFD        int32
	libraryFDOffset  int64
	libraryNamespace uintptr
}

// Available reports whether the private loader entry points resolved. It
// must be true before any other operation can succeed.
func Available() bool {
	_, err := resolvedTable()
	return err == nil
}

// CreateNamespace creates a linker namespace with this library's own code
// address as the caller identity, scoping it the way the loader would scope
// any namespace requested by app code.
func CreateNamespace(name, ldLibraryPath, defaultLibraryPath string, nsType NamespaceType, permittedPath string, parent *Namespace) (*Namespace, error) {
	if _, err := resolvedTable(); err != nil {
		return nil, err
	}
	return createNamespace(name, ldLibraryPath, defaultLibraryPath, nsType, permittedPath, parent, bridgeCallerAddress())
}

// CreateNamespaceEscaped creates a linker namespace while presenting the
// public dlopen's address as the caller, the same privilege spoof used
// during bootstrap. This mints namespaces as if the loader itself asked,
// e.g. a view of the platform default namespace that sandboxed callers
// cannot otherwise reach.
func CreateNamespaceEscaped(name, ldLibraryPath, defaultLibraryPath string, nsType NamespaceType, permittedPath string, parent *Namespace) (*Namespace, error) {
	t, err := resolvedTable()
	if err != nil {
		return nil, err
	}
	return createNamespace(name, ldLibraryPath, defaultLibraryPath, nsType, permittedPath, parent, t.dlopen)
}

// createNamespace invokes __loader_android_create_namespace with an explicit
// effective caller identity.
func createNamespace(name, ldLibraryPath, defaultLibraryPath string, nsType NamespaceType, permittedPath string, parent *Namespace, callerIdentity uintptr) (*Namespace, error) {
	t, err := resolvedTable()
	if err != nil {
		return nil, err
	}

	nameB := cstr(name)
	ldB := cstrOrNil(ldLibraryPath)
	defB := cstrOrNil(defaultLibraryPath)
	permB := cstrOrNil(permittedPath)

	raw := cCall7(t.createNamespace,
		cstrPtr(nameB), cstrPtr(ldB), cstrPtr(defB),
		uintptr(nsType), cstrPtr(permB), parent.Raw(), callerIdentity)
	runtime.KeepAlive(nameB)
	runtime.KeepAlive(ldB)
	runtime.KeepAlive(defB)
	runtime.KeepAlive(permB)

	if raw == 0 {
		return nil, wrapDlerror(fmt.Errorf("%w: create namespace %q", ErrNamespaceRejected, name))
	}
	return &Namespace{raw: raw}, nil
}

// LinkNamespacesAllLibs makes every library visible in to resolvable from
// from, with no allow-list.
func LinkNamespacesAllLibs(from, to *Namespace) error {
	t, err := resolvedTable()
	if err != nil {
		return err
	}
	if cCall2(t.linkAllLibs, from.Raw(), to.Raw()) == 0 {
		return wrapDlerror(fmt.Errorf("%w: link namespaces (all libs)", ErrNamespaceRejected))
	}
	return nil
}

// LinkNamespaces links two namespaces restricted to the named sonames.
func LinkNamespaces(from, to *Namespace, sonames []string) error {
	t, err := resolvedTable()
	if err != nil {
		return err
	}
	b := cstr(strings.Join(sonames, ":"))
	ok := cCall3(t.linkNamespaces, from.Raw(), to.Raw(), cstrPtr(b))
	runtime.KeepAlive(b)
	if ok == 0 {
		return wrapDlerror(fmt.Errorf("%w: link namespaces", ErrNamespaceRejected))
	}
	return nil
}

// ExportedNamespace looks up one of the loader's exported namespaces
// ("default", "sphal", "vndk", ...) by name.
func ExportedNamespace(name string) (*Namespace, error) {
	t, err := resolvedTable()
	if err != nil {
		return nil, err
	}
	b := cstr(name)
	raw := cCall1(t.exportedNamespace, cstrPtr(b))
	runtime.KeepAlive(b)
	if raw == 0 {
		return nil, fmt.Errorf("%w: no exported namespace %q", ErrNamespaceRejected, name)
	}
	return &Namespace{raw: raw}, nil
}

// ApplyHookToNamespace opens hookLibName into ns with global symbol
// visibility and delivers hookParam through the hook's writable hook_param
// symbol. A parameter without a symbol to receive it, or a symbol without a
// parameter, violates the hook contract.
func ApplyHookToNamespace(hookLibName string, ns *Namespace, hookParam uintptr) error {
	t, err := resolvedTable()
	if err != nil {
		return err
	}

	ext := dlextinfo{flags: dlextUseNamespace, libraryNamespace: ns.Raw()}
	handle := dlopenExtRaw(t, hookLibName, ModeGlobal, &ext)
	if handle == 0 {
		return wrapDlerror(fmt.Errorf("%w: open hook library %q", ErrHookContract, hookLibName))
	}

	sym := rawDlsym(t.dlsym, handle, "hook_param")
	if hookParamMismatch(sym, hookParam) {
		return fmt.Errorf("%w: hook_param symbol and parameter must be supplied together", ErrHookContract)
	}
	if sym != 0 && hookParam != 0 {
		*(*uintptr)(unsafe.Pointer(sym)) = hookParam
	}
	return nil
}

// LoadUniqueHooked loads a soname-patched, uniquely identified copy of a
// library into a fresh isolation namespace, optionally injecting a hook
// library first. Every load in the process gets a distinct soname, so the
// loader's dedup cache can never hand back a previously loaded copy.
func LoadUniqueHooked(opts LoadOptions) (*Library, error) {
	t, err := resolvedTable()
	if err != nil {
		return nil, err
	}
	if opts.LibPath == "" {
		return nil, errors.New("linkerns: empty library path")
	}

	// Isolate whatever the hook and target pull in from the caller's own
	// namespace.
	hookNs, err := createNamespace(opts.LibPath, opts.HookLibDir, "", NamespaceShared, "", opts.Parent, bridgeCallerAddress())
	if err != nil {
		return nil, err
	}

	if opts.LinkToDefault {
		defaultNs, err := createNamespace("default_copy", "", "", NamespaceShared, "", nil, t.dlopen)
		if err != nil {
			return nil, err
		}
		if err := LinkNamespacesAllLibs(hookNs, defaultNs); err != nil {
			return nil, err
		}
	}

	if opts.Parent != nil {
		if err := LinkNamespacesAllLibs(hookNs, opts.Parent); err != nil {
			return nil, err
		}
	}

	if opts.HookLibName != "" {
		if err := ApplyHookToNamespace(opts.HookLibName, hookNs, opts.HookParam); err != nil {
			return nil, err
		}
	} else if hookParamOrphaned(opts.HookLibName, opts.HookParam) {
		return nil, fmt.Errorf("%w: hook parameter supplied without a hook library", ErrHookContract)
	}

	id := nextTargetID()
	tag := sonameTag(id)

	var fd int
	if opts.TargetDir != "" {
		path := filepath.Join(opts.TargetDir, patchedLibName(tag))
		fd, err = unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrNoBackingFile, path, err)
		}
	} else {
		fd, err = unix.MemfdCreate(opts.LibPath, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: memfd_create: %v", ErrNoBackingFile, err)
		}
	}
	if fd < 0 {
		return nil, ErrNoBackingFile
	}

	if err := sonamepatch.Patch(opts.LibPath, fd, tag); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchFailed, err)
	}

	// Open by descriptor; the artifact may be file-less, so the path is
	// only a plausible-looking label.
	ext := dlextinfo{
		flags:            dlextUseNamespace | dlextUseLibraryFD,
		libraryFD:        int32(fd),
		libraryNamespace: hookNs.Raw(),
	}
	fdPath := procFDPath(fd)
	handle := dlopenExtRaw(t, fdPath, opts.Mode, &ext)
	if handle == 0 {
		return nil, wrapDlerror(fmt.Errorf("%w: %s", ErrOpenRejected, opts.LibPath))
	}
	return &Library{handle: handle, path: fdPath}, nil
}

// Symbol resolves an exported symbol of the loaded library.
func (l *Library) Symbol(name string) (uintptr, error) {
	t, err := resolvedTable()
	if err != nil {
		return 0, err
	}
	if l == nil || l.handle == 0 {
		return 0, errors.New("linkerns: nil library handle")
	}
	sym := rawDlsym(t.dlsym, l.handle, name)
	if sym == 0 {
		return 0, wrapDlerror(fmt.Errorf("linkerns: symbol %q not found", name))
	}
	return sym, nil
}

// CallExport resolves and calls a zero-argument exported function.
func (l *Library) CallExport(name string) error {
	addr, err := l.Symbol(name)
	if err != nil {
		return err
	}
	_ = cCall0(addr)
	return nil
}

func dlopenExtRaw(t *loaderTable, path string, mode Mode, info *dlextinfo) uintptr {
	b := cstr(path)
	handle := cCall3(t.dlopenExt, cstrPtr(b), uintptr(mode), uintptr(unsafe.Pointer(info)))
	runtime.KeepAlive(b)
	runtime.KeepAlive(info)
	return handle
}

func cstrOrNil(s string) []byte {
	if s == "" {
		return nil
	}
	return cstr(s)
}

func wrapDlerror(err error) error {
	if msg := dlerrorText(); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

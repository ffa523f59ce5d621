//go:build !(android && arm64)

package linkerns

// The live path needs bionic's loader and AArch64 trampolines. On every
// other platform the package reports itself unavailable and performs no
// side effects, mirroring a failed bootstrap on-device.

// Available reports whether the private loader entry points resolved.
func Available() bool { return false }

// CreateNamespace creates a linker namespace with this library's own code
// address as the caller identity.
func CreateNamespace(name, ldLibraryPath, defaultLibraryPath string, nsType NamespaceType, permittedPath string, parent *Namespace) (*Namespace, error) {
	_, _, _, _, _, _ = name, ldLibraryPath, defaultLibraryPath, nsType, permittedPath, parent
	return nil, ErrUnavailable
}

// CreateNamespaceEscaped creates a linker namespace with the public dlopen's
// address spoofed as the caller identity.
func CreateNamespaceEscaped(name, ldLibraryPath, defaultLibraryPath string, nsType NamespaceType, permittedPath string, parent *Namespace) (*Namespace, error) {
	_, _, _, _, _, _ = name, ldLibraryPath, defaultLibraryPath, nsType, permittedPath, parent
	return nil, ErrUnavailable
}

// LinkNamespacesAllLibs makes every library visible in to resolvable from from.
func LinkNamespacesAllLibs(from, to *Namespace) error {
	_, _ = from, to
	return ErrUnavailable
}

// LinkNamespaces links two namespaces restricted to the named sonames.
func LinkNamespaces(from, to *Namespace, sonames []string) error {
	_, _, _ = from, to, sonames
	return ErrUnavailable
}

// ExportedNamespace looks up one of the loader's exported namespaces by name.
func ExportedNamespace(name string) (*Namespace, error) {
	_ = name
	return nil, ErrUnavailable
}

// ApplyHookToNamespace opens a hook library into ns and delivers hookParam.
func ApplyHookToNamespace(hookLibName string, ns *Namespace, hookParam uintptr) error {
	_, _, _ = hookLibName, ns, hookParam
	return ErrUnavailable
}

// LoadUniqueHooked loads a soname-patched unique copy of a library into a
// fresh isolation namespace.
func LoadUniqueHooked(opts LoadOptions) (*Library, error) {
	_ = opts
	return nil, ErrUnavailable
}

// Symbol resolves an exported symbol of the loaded library.
func (l *Library) Symbol(name string) (uintptr, error) {
	_ = name
	return 0, ErrUnavailable
}

// CallExport resolves and calls a zero-argument exported function.
func (l *Library) CallExport(name string) error {
	_ = name
	return ErrUnavailable
}

//go:build android && arm64

package linkerns

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/sliverarmory/linkerns/trampoline"
)

// loaderTable holds the resolved private loader entry points plus the
// public dl* addresses used to reach them. Populated exactly once; read-only
// afterward. A table that never reaches ready means the system is
// permanently unavailable in this process.
type loaderTable struct {
	createNamespace   uintptr // __loader_android_create_namespace
	linkNamespaces    uintptr // __loader_android_link_namespaces
	linkAllLibs       uintptr // __loader_android_link_namespaces_all_libs
	exportedNamespace uintptr // __loader_android_get_exported_namespace
	dlopenExt         uintptr // android_dlopen_ext

	dlopen  uintptr // public entry; doubles as the spoofed caller identity
	dlsym   uintptr
	dlerror uintptr

	ready bool
}

var (
	tableOnce sync.Once
	table     loaderTable
)

// resolvedTable returns the fully populated table or ErrUnavailable. It
// never exposes a partially initialized table.
func resolvedTable() (*loaderTable, error) {
	tableOnce.Do(initTable)
	if !table.ready {
		return nil, ErrUnavailable
	}
	return &table, nil
}

// initTable performs the bootstrap sequence. Any failure aborts and leaves
// ready false; there are no retries.
func initTable() {
	if !bridgeAvailable {
		return
	}

	dlopenAddr, err := publicSymbolAddress("dlopen")
	if err != nil {
		return
	}
	dlsymAddr, err := publicSymbolAddress("dlsym")
	if err != nil {
		return
	}
	// dlerror is diagnostics only; resolution failure is tolerated.
	dlerrorAddr, _ := publicSymbolAddress("dlerror")

	// dlopen is a trampoline that forwards to __loader_dlopen with its own
	// return address appended; the first BL points at the internal handler.
	loaderDlopen, err := trampoline.FindBranchTarget(dlopenAddr)
	if err != nil {
		return
	}

	// Presenting dlopen's own address as the caller makes the loader treat
	// the request as coming from itself, which unlocks the unrestricted
	// namespace and with it the private loader objects below.
	ldHandle := rawDlopen(loaderDlopen, "ld-android.so", ModeLazy, dlopenAddr)
	if ldHandle == 0 {
		return
	}
	linkAllLibs := rawDlsym(dlsymAddr, ldHandle, "__loader_android_link_namespaces_all_libs")
	if linkAllLibs == 0 {
		return
	}
	linkNamespaces := rawDlsym(dlsymAddr, ldHandle, "__loader_android_link_namespaces")
	if linkNamespaces == 0 {
		return
	}

	libdlAndroid := rawDlopen(loaderDlopen, "libdl_android.so", ModeLazy, dlopenAddr)
	if libdlAndroid == 0 {
		return
	}
	createNamespace := rawDlsym(dlsymAddr, libdlAndroid, "__loader_android_create_namespace")
	if createNamespace == 0 {
		return
	}
	exportedNamespace := rawDlsym(dlsymAddr, libdlAndroid, "__loader_android_get_exported_namespace")
	if exportedNamespace == 0 {
		return
	}

	// android_dlopen_ext is resolved fresh from libdl so a hook library
	// overriding it cannot interpose on our own loads.
	libdl := cCall2(dlopenAddr, cstrPtr(cstr("libdl.so")), uintptr(ModeLazy))
	if libdl == 0 {
		return
	}
	dlopenExt := rawDlsym(dlsymAddr, libdl, "android_dlopen_ext")
	if dlopenExt == 0 {
		return
	}

	table = loaderTable{
		createNamespace:   createNamespace,
		linkNamespaces:    linkNamespaces,
		linkAllLibs:       linkAllLibs,
		exportedNamespace: exportedNamespace,
		dlopenExt:         dlopenExt,
		dlopen:            dlopenAddr,
		dlsym:             dlsymAddr,
		dlerror:           dlerrorAddr,
		ready:             true,
	}
}

// rawDlopen invokes __loader_dlopen(path, mode, caller).
func rawDlopen(loaderDlopen uintptr, path string, mode Mode, caller uintptr) uintptr {
	b := cstr(path)
	handle := cCall3(loaderDlopen, cstrPtr(b), uintptr(mode), caller)
	runtime.KeepAlive(b)
	return handle
}

// rawDlsym invokes the public dlsym against an already-open handle.
func rawDlsym(dlsymAddr uintptr, handle uintptr, name string) uintptr {
	b := cstr(name)
	sym := cCall2(dlsymAddr, handle, cstrPtr(b))
	runtime.KeepAlive(b)
	return sym
}

func cstr(s string) []byte {
	if strings.ContainsRune(s, '\x00') {
		return nil
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

func cstrPtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func cstrFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	const maxLen = 1 << 12
	buf := make([]byte, 0, 64)
	for i := 0; i < maxLen; i++ {
		ch := *(*byte)(unsafe.Pointer(ptr + uintptr(i)))
		if ch == 0 {
			break
		}
		buf = append(buf, ch)
	}
	return string(buf)
}

// dlerrorText drains the loader's thread-local error string, if dlerror was
// resolved.
func dlerrorText() string {
	if table.dlerror == 0 {
		return ""
	}
	return cstrFromPtr(cCall0(table.dlerror))
}

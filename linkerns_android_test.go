//go:build android && arm64

package linkerns_test

import (
	"errors"
	"os"
	"testing"

	"github.com/sliverarmory/linkerns"
)

const testSystemLib = "/system/lib64/liblog.so"

func requireLiveLoader(t *testing.T) {
	t.Helper()
	if !linkerns.Available() {
		t.Skip("private loader entry points did not resolve on this device")
	}
	if _, err := os.Stat(testSystemLib); err != nil {
		t.Skipf("%s not present: %v", testSystemLib, err)
	}
}

func TestLoadUniqueHookedSequentialLoadsAreDistinct(t *testing.T) {
	requireLiveLoader(t)

	opts := linkerns.LoadOptions{LibPath: testSystemLib, Mode: linkerns.ModeNow, LinkToDefault: true}

	first, err := linkerns.LoadUniqueHooked(opts)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := linkerns.LoadUniqueHooked(opts)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first.Handle() == second.Handle() {
		t.Fatalf("loader deduplicated the patched copies: handle %#x", first.Handle())
	}
}

func TestLoadUniqueHookedRejectsOrphanHookParam(t *testing.T) {
	requireLiveLoader(t)

	_, err := linkerns.LoadUniqueHooked(linkerns.LoadOptions{
		LibPath:   testSystemLib,
		Mode:      linkerns.ModeNow,
		HookParam: 0xdeadbeef,
	})
	if !errors.Is(err, linkerns.ErrHookContract) {
		t.Fatalf("expected ErrHookContract, got %v", err)
	}
}

func TestCreateNamespaceEscapedReachesDefault(t *testing.T) {
	requireLiveLoader(t)

	ns, err := linkerns.CreateNamespaceEscaped("default_copy", "", "", linkerns.NamespaceShared, "", nil)
	if err != nil {
		t.Fatalf("CreateNamespaceEscaped: %v", err)
	}
	if ns.Raw() == 0 {
		t.Fatal("escaped namespace handle is null")
	}
}

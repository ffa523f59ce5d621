package linkerns

import (
	"fmt"
	"testing"
)

func TestSonameTagSequence(t *testing.T) {
	const calls = 2500

	prev := -1
	seen := make(map[string]int, 1000)
	for i := 0; i < calls; i++ {
		id := nextTargetID()
		tag := sonameTag(id)

		if len(tag) != 3 {
			t.Fatalf("tag %q is not three characters", tag)
		}
		if want := fmt.Sprintf("%03d", id%1000); tag != want {
			t.Fatalf("tag mismatch: got %q want %q", tag, want)
		}

		n := int(id % 1000)
		if prev >= 0 {
			if n != (prev+1)%1000 {
				t.Fatalf("tags not strictly increasing mod 1000: %d after %d", n, prev)
			}
		}
		if last, ok := seen[tag]; ok && i-last < 1000 {
			t.Fatalf("tag %q repeated after %d calls", tag, i-last)
		}
		seen[tag] = i
		prev = n
	}
}

func TestTargetIDNeverReused(t *testing.T) {
	first := nextTargetID()
	second := nextTargetID()
	if second == first {
		t.Fatalf("target id reused: %d", first)
	}
	if second != first+1 {
		t.Fatalf("target id not monotonic: %d then %d", first, second)
	}
}

func TestPatchedLibName(t *testing.T) {
	if got, want := patchedLibName(sonameTag(7)), "007_patched.so"; got != want {
		t.Fatalf("unexpected artifact name: got %q want %q", got, want)
	}
	if got, want := patchedLibName(sonameTag(1042)), "042_patched.so"; got != want {
		t.Fatalf("unexpected artifact name: got %q want %q", got, want)
	}
}

func TestProcFDPath(t *testing.T) {
	if got, want := procFDPath(17), "/proc/self/fd/17"; got != want {
		t.Fatalf("unexpected fd path: got %q want %q", got, want)
	}
}

func TestHookParamOrphaned(t *testing.T) {
	if !hookParamOrphaned("", 0xdead) {
		t.Fatal("parameter without a hook library must be rejected")
	}
	if hookParamOrphaned("libhook.so", 0xdead) {
		t.Fatal("parameter with a hook library is valid")
	}
	if hookParamOrphaned("", 0) {
		t.Fatal("no parameter, no hook library is valid")
	}
}

func TestHookParamMismatch(t *testing.T) {
	cases := []struct {
		sym, param uintptr
		mismatch   bool
	}{
		{0, 0, false},
		{0x1000, 0x2000, false},
		{0x1000, 0, true},
		{0, 0x2000, true},
	}
	for _, c := range cases {
		if got := hookParamMismatch(c.sym, c.param); got != c.mismatch {
			t.Fatalf("hookParamMismatch(%#x, %#x) = %v, want %v", c.sym, c.param, got, c.mismatch)
		}
	}
}

func TestNilNamespaceRaw(t *testing.T) {
	var ns *Namespace
	if ns.Raw() != 0 {
		t.Fatal("nil namespace must map to the loader's null namespace")
	}
}

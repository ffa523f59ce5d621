//go:build android && arm64 && !cgo

package linkerns

// Without cgo there is no C-ABI bridge to the resolved loader entry points.
// Table initialization checks bridgeAvailable and aborts, leaving the
// system in the unavailable state; none of these are ever reached.

const bridgeAvailable = false

func cCall0(fn uintptr) uintptr { _ = fn; return 0 }

func cCall1(fn, a0 uintptr) uintptr { _, _ = fn, a0; return 0 }

func cCall2(fn, a0, a1 uintptr) uintptr { _, _, _ = fn, a0, a1; return 0 }

func cCall3(fn, a0, a1, a2 uintptr) uintptr { _, _, _, _ = fn, a0, a1, a2; return 0 }

func cCall7(fn, a0, a1, a2, a3, a4, a5, a6 uintptr) uintptr {
	_, _, _, _, _, _, _, _ = fn, a0, a1, a2, a3, a4, a5, a6
	return 0
}

func bridgeCallerAddress() uintptr { return 0 }

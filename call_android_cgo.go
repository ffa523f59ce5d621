//go:build android && arm64 && cgo

package linkerns

/*
#include <stdint.h>

typedef uintptr_t (*linkerns_fn0)(void);
typedef uintptr_t (*linkerns_fn1)(uintptr_t);
typedef uintptr_t (*linkerns_fn2)(uintptr_t, uintptr_t);
typedef uintptr_t (*linkerns_fn3)(uintptr_t, uintptr_t, uintptr_t);
typedef uintptr_t (*linkerns_fn7)(uintptr_t, uintptr_t, uintptr_t, uintptr_t, uintptr_t, uintptr_t, uintptr_t);

static uintptr_t linkerns_call0(uintptr_t fn) {
	return ((linkerns_fn0)fn)();
}

static uintptr_t linkerns_call1(uintptr_t fn, uintptr_t a0) {
	return ((linkerns_fn1)fn)(a0);
}

static uintptr_t linkerns_call2(uintptr_t fn, uintptr_t a0, uintptr_t a1) {
	return ((linkerns_fn2)fn)(a0, a1);
}

static uintptr_t linkerns_call3(uintptr_t fn, uintptr_t a0, uintptr_t a1, uintptr_t a2) {
	return ((linkerns_fn3)fn)(a0, a1, a2);
}

static uintptr_t linkerns_call7(uintptr_t fn, uintptr_t a0, uintptr_t a1, uintptr_t a2, uintptr_t a3, uintptr_t a4, uintptr_t a5, uintptr_t a6) {
	return ((linkerns_fn7)fn)(a0, a1, a2, a3, a4, a5, a6);
}

// The address of native code belonging to this object; the loader maps it
// back to the namespace this library was itself loaded into.
static uintptr_t linkerns_self_addr(void) {
	return (uintptr_t)&linkerns_call0;
}
*/
import "C"

const bridgeAvailable = true

func cCall0(fn uintptr) uintptr {
	return uintptr(C.linkerns_call0(C.uintptr_t(fn)))
}

func cCall1(fn, a0 uintptr) uintptr {
	return uintptr(C.linkerns_call1(C.uintptr_t(fn), C.uintptr_t(a0)))
}

func cCall2(fn, a0, a1 uintptr) uintptr {
	return uintptr(C.linkerns_call2(C.uintptr_t(fn), C.uintptr_t(a0), C.uintptr_t(a1)))
}

func cCall3(fn, a0, a1, a2 uintptr) uintptr {
	return uintptr(C.linkerns_call3(C.uintptr_t(fn), C.uintptr_t(a0), C.uintptr_t(a1), C.uintptr_t(a2)))
}

func cCall7(fn, a0, a1, a2, a3, a4, a5, a6 uintptr) uintptr {
	return uintptr(C.linkerns_call7(C.uintptr_t(fn), C.uintptr_t(a0), C.uintptr_t(a1), C.uintptr_t(a2), C.uintptr_t(a3), C.uintptr_t(a4), C.uintptr_t(a5), C.uintptr_t(a6)))
}

// bridgeCallerAddress is the non-spoofed caller identity handed to the
// namespace-creation entry point.
func bridgeCallerAddress() uintptr {
	return uintptr(C.linkerns_self_addr())
}

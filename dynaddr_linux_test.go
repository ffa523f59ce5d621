//go:build linux

package linkerns

import (
	"testing"
)

const bionicMapsFixture = `12c00000-12d40000 rw-p 00000000 00:00 0                              [anon:dalvik-main space]
7bf2a00000-7bf2a2c000 r--p 00000000 fe:09 12345                          /apex/com.android.runtime/lib64/bionic/libdl.so
7bf2a2c000-7bf2a2e000 r-xp 0002c000 fe:09 12345                          /apex/com.android.runtime/lib64/bionic/libdl.so
7bf2b00000-7bf2b80000 r-xp 00040000 fe:09 12346                          /apex/com.android.runtime/lib64/bionic/libc.so
7bf2c00000-7bf2c04000 r-xp 00000000 fe:09 12347                          /vendor/lib64/libweird.so (deleted)
7ff1000000-7ff1004000 r-xp 00000000 00:00 0
`

func TestParseMapsKeepsExecutableFileBackedEntries(t *testing.T) {
	entries := parseMaps([]byte(bionicMapsFixture))

	if len(entries) != 3 {
		t.Fatalf("expected 3 executable file-backed mappings, got %d: %+v", len(entries), entries)
	}
	if entries[0].path != "/apex/com.android.runtime/lib64/bionic/libdl.so" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].start != 0x7bf2a2c000 || entries[0].offset != 0x2c000 {
		t.Fatalf("bad range/offset parse: %+v", entries[0])
	}
	if entries[2].path != "/vendor/lib64/libweird.so" {
		t.Fatalf("deleted suffix not stripped: %+v", entries[2])
	}
}

func TestLoaderPathScorePrefersLibdl(t *testing.T) {
	libdl := loaderPathScore("/apex/com.android.runtime/lib64/bionic/libdl.so")
	libc := loaderPathScore("/apex/com.android.runtime/lib64/bionic/libc.so")
	musl := loaderPathScore("/lib/ld-musl-aarch64.so.1")
	other := loaderPathScore("/vendor/lib64/libweird.so")

	if libdl <= libc {
		t.Fatalf("libdl (%d) must outrank libc (%d)", libdl, libc)
	}
	if libc <= musl {
		t.Fatalf("libc (%d) must outrank musl (%d)", libc, musl)
	}
	if other != -1 {
		t.Fatalf("unrelated libraries must not be candidates, got %d", other)
	}
}

func TestParseHexUintptr(t *testing.T) {
	if v, err := parseHexUintptr("7bf2a2c000"); err != nil || v != 0x7bf2a2c000 {
		t.Fatalf("parseHexUintptr: got %#x, %v", v, err)
	}
	if _, err := parseHexUintptr("not-hex"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
	if _, err := parseHexUintptr(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestDynSymbolOffsetMissingFile(t *testing.T) {
	if _, err := dynSymbolOffset("/nonexistent/libdl.so", "dlopen"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

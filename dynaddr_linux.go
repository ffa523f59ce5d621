//go:build linux

package linkerns

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"strings"
)

// publicSymbolAddress resolves an exported symbol of the process's dynamic
// loader object (bionic's libdl.so, or the libc hosting the dl* family on
// other systems) to its live address: mapping base plus the symbol's file
// offset from the object's dynamic symbol table.
func publicSymbolAddress(symbol string) (uintptr, error) {
	path, base, err := findLoaderObject()
	if err != nil {
		return 0, err
	}
	off, err := dynSymbolOffset(path, symbol)
	if err != nil {
		return 0, err
	}
	return base + off, nil
}

type mapEntry struct {
	start  uintptr
	offset uintptr
	path   string
}

// findLoaderObject picks the mapped object most likely to export the public
// dl* entry points and returns its path and load base.
func findLoaderObject() (string, uintptr, error) {
	raw, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return "", 0, fmt.Errorf("read /proc/self/maps: %w", err)
	}

	bestScore := -1
	var best mapEntry
	for _, entry := range parseMaps(raw) {
		score := loaderPathScore(entry.path)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}
	if bestScore < 0 {
		return "", 0, errors.New("no dynamic loader object mapped")
	}
	if best.start < best.offset {
		return "", 0, fmt.Errorf("invalid mapping base for %s", best.path)
	}
	return best.path, best.start - best.offset, nil
}

// loaderPathScore ranks mapped objects. Bionic keeps dlopen in libdl.so;
// glibc moved the dl* family into libc proper.
func loaderPathScore(path string) int {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "libdl.so"):
		return 100
	case strings.Contains(p, "libdl-"):
		return 95
	case strings.Contains(p, "libc.so"):
		return 90
	case strings.Contains(p, "libc-"):
		return 85
	case strings.Contains(p, "ld-musl"):
		return 80
	default:
		return -1
	}
}

// parseMaps extracts the executable file-backed mappings from a
// /proc/self/maps image.
func parseMaps(raw []byte) []mapEntry {
	lines := strings.Split(string(raw), "\n")
	entries := make([]mapEntry, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 6 {
			continue
		}
		if !strings.Contains(fields[1], "x") {
			continue
		}

		rangeParts := strings.SplitN(fields[0], "-", 2)
		if len(rangeParts) != 2 {
			continue
		}
		start, startErr := parseHexUintptr(rangeParts[0])
		offset, offsetErr := parseHexUintptr(fields[2])
		if startErr != nil || offsetErr != nil {
			continue
		}

		path := strings.TrimSuffix(strings.Join(fields[5:], " "), " (deleted)")
		if !strings.HasPrefix(path, "/") {
			continue
		}

		entries = append(entries, mapEntry{start: start, offset: offset, path: path})
	}
	return entries
}

func parseHexUintptr(s string) (uintptr, error) {
	if s == "" {
		return 0, errors.New("empty hex string")
	}
	var out uintptr
	for _, r := range s {
		out <<= 4
		switch {
		case r >= '0' && r <= '9':
			out += uintptr(r - '0')
		case r >= 'a' && r <= 'f':
			out += uintptr(r-'a') + 10
		case r >= 'A' && r <= 'F':
			out += uintptr(r-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex string %q", s)
		}
	}
	return out, nil
}

// dynSymbolOffset reads an object's dynamic symbol table and returns the
// named symbol's value (its offset from the object's load base).
func dynSymbolOffset(path string, symbol string) (uintptr, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	if syms, err := f.DynamicSymbols(); err == nil {
		if off, ok := matchSymbol(syms, symbol); ok {
			return off, nil
		}
	}
	if syms, err := f.Symbols(); err == nil {
		if off, ok := matchSymbol(syms, symbol); ok {
			return off, nil
		}
	}
	return 0, fmt.Errorf("symbol %s not found in %s", symbol, path)
}

func matchSymbol(symbols []elf.Symbol, want string) (uintptr, bool) {
	for _, s := range symbols {
		if s.Value == 0 {
			continue
		}
		if s.Name == want || strings.HasPrefix(s.Name, want+"@") {
			return uintptr(s.Value), true
		}
	}
	return 0, false
}

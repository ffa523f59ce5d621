//go:build linux

package sonamepatch

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Patch reads the shared object at libPath, rewrites its soname with tag,
// and writes the complete patched image to fd starting at offset 0. fd is
// typically a memfd or a freshly created file; it is left open for the
// caller to hand to the loader.
func Patch(libPath string, fd int, tag string) error {
	if fd < 0 {
		return fmt.Errorf("sonamepatch: invalid target fd %d", fd)
	}

	data, err := os.ReadFile(libPath)
	if err != nil {
		return fmt.Errorf("sonamepatch: read %s: %w", libPath, err)
	}
	if err := Rewrite(data, tag); err != nil {
		return err
	}

	written := 0
	for written < len(data) {
		n, err := unix.Pwrite(fd, data[written:], int64(written))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("sonamepatch: write patched image: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("sonamepatch: write patched image: short write (%d/%d)", written, len(data))
		}
		written += n
	}
	return nil
}

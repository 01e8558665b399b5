//go:build !(darwin || freebsd || linux)

package native

import (
	"fmt"
	"runtime"
)

// DefaultOpener returns an Opener that always fails: this platform has no
// purego dynamic loader, so only the guest module can be used.
func DefaultOpener() Opener {
	return OpenerFunc(func(path string) (Library, error) {
		return nil, fmt.Errorf("native modules are not supported on %s", runtime.GOOS)
	})
}

package compose

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"featmill/internal/faults"
)

// LockFile is created in the output directory while a run writes to it.
const LockFile = ".featmill.lock"

// lockDir takes the output directory lock without waiting.
func lockDir(dir string) (func(), error) {
	path := filepath.Join(dir, LockFile)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "compose", "lock", path, err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrIO, "compose", "lock",
			fmt.Sprintf("%s is held by another featmill run", path), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

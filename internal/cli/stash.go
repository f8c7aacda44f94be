package cli

import (
	"github.com/nir0s/clu/pkg/stash"
)

// openStash resolves path/passphrase/backend type from the environment
// (falling back to positionalPath when GHOST_STASH_PATH is unset) and
// opens an existing stash over the selected backend.
func openStash(positionalPath string) (*stash.Stash, error) {
	path, err := resolveStashPath(positionalPath)
	if err != nil {
		return nil, err
	}
	be, err := newBackend(resolveBackendType(), path)
	if err != nil {
		return nil, err
	}
	return stash.Open(be, resolvePassphrase())
}


package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nir0s/clu/pkg/stash"
)

var initStashCmd = &cobra.Command{
	Use:   "init_stash [path]",
	Short: "Initialize a new stash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		positional := ""
		if len(args) == 1 {
			positional = args[0]
		}

		path, err := resolveStashPath(positional)
		if err != nil {
			fail("init_stash", err)
		}

		be, err := newBackend(resolveBackendType(), path)
		if err != nil {
			fail("init_stash", err)
		}

		effective, err := stash.Init(be, resolvePassphrase())
		if err != nil {
			fail("init_stash", err)
		}

		if err := os.WriteFile(passphraseFile, []byte(effective), 0o600); err != nil {
			fail("init_stash", fmt.Errorf("write %s: %w", passphraseFile, err))
		}

		fmt.Printf("Stash initialized at %s\n", path)
		return nil
	},
}

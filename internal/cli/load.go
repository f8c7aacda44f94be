package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nir0s/clu/pkg/stash"
)

var loadVerify bool

var loadKeysCmd = &cobra.Command{
	Use:   "load_keys <path>",
	Short: "Load keys from a previously exported file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		s, err := openStash("")
		if err != nil {
			fail("load_keys", err)
		}
		defer s.Close()

		if err := s.Load(stash.LoadOptions{KeyFile: path, Verify: loadVerify}); err != nil {
			fail("load_keys", err)
		}

		fmt.Printf("Keys loaded from %s\n", path)
		return nil
	},
}

func init() {
	loadKeysCmd.Flags().BoolVar(&loadVerify, "verify", false, "verify every key decrypts under the current passphrase before loading")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeForce bool

var purgeStashCmd = &cobra.Command{
	Use:   "purge_stash",
	Short: "Delete all keys in the stash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStash("")
		if err != nil {
			fail("purge_stash", err)
		}
		defer s.Close()

		if err := s.Purge(purgeForce); err != nil {
			fail("purge_stash", err)
		}

		fmt.Println("Stash purged successfully")
		return nil
	},
}

func init() {
	purgeStashCmd.Flags().BoolVarP(&purgeForce, "force", "f", false, "required to confirm the purge")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteKeyCmd = &cobra.Command{
	Use:   "delete_key <name>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := openStash("")
		if err != nil {
			fail("delete_key", err)
		}
		defer s.Close()

		if err := s.Delete(name); err != nil {
			fail("delete_key", err)
		}

		fmt.Printf("Key %s deleted successfully\n", name)
		return nil
	},
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

var listKeysCmd = &cobra.Command{
	Use:   "list_keys",
	Short: "List all key names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStash("")
		if err != nil {
			fail("list_keys", err)
		}
		defer s.Close()

		names, err := s.List()
		if err != nil {
			fail("list_keys", err)
		}

		if len(names) == 0 {
			fmt.Println("The stash is empty")
			return nil
		}

		if listJSON {
			out, err := json.Marshal(names)
			if err != nil {
				fail("list_keys", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Println(prettifyList(names))
		return nil
	},
}

func init() {
	listKeysCmd.Flags().BoolVarP(&listJSON, "json", "j", false, "print as JSON")
}

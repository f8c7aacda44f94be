package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nir0s/clu/pkg/stash"
)

var (
	putModify      bool
	putDescription string
	putMeta        []string
)

var putKeyCmd = &cobra.Command{
	Use:   "put_key <name> [key=value ...]",
	Short: "Store or update a key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		pairs := args[1:]

		s, err := openStash("")
		if err != nil {
			fail("put_key", err)
		}
		defer s.Close()

		opts := stash.PutOptions{Modify: putModify}

		if len(pairs) > 0 {
			value, err := buildDictFromKeyValue(pairs)
			if err != nil {
				fail("put_key", err)
			}
			opts.Value = value
		}
		if cmd.Flags().Changed("description") {
			opts.Description = &putDescription
		}
		if len(putMeta) > 0 {
			meta, err := buildDictFromKeyValue(putMeta)
			if err != nil {
				fail("put_key", err)
			}
			opts.Metadata = meta
		}

		if _, err := s.Put(name, opts); err != nil {
			fail("put_key", err)
		}

		fmt.Printf("Key %s put successfully\n", name)
		return nil
	},
}

func init() {
	putKeyCmd.Flags().BoolVar(&putModify, "modify", false, "overwrite an existing key")
	putKeyCmd.Flags().StringVar(&putDescription, "description", "", "free-text description")
	putKeyCmd.Flags().StringArrayVar(&putMeta, "meta", nil, "metadata key=value pair (repeatable)")
}

// buildDictFromKeyValue parses a list of "key=value" strings into a
// mapping, failing with MalformedKeyValue on any entry missing "=".
func buildDictFromKeyValue(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		idx := strings.Index(pair, "=")
		if idx < 0 {
			return nil, &stash.Error{
				Kind:    stash.ErrMalformedKeyValue,
				Message: fmt.Sprintf("%q is not a valid key=value pair", pair),
			}
		}
		result[pair[:idx]] = pair[idx+1:]
	}
	return result, nil
}

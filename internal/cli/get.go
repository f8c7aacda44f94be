package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nir0s/clu/pkg/stash"
)

var getJSON bool

var getKeyCmd = &cobra.Command{
	Use:   "get_key <name>",
	Short: "Retrieve a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, err := openStash("")
		if err != nil {
			fail("get_key", err)
		}
		defer s.Close()

		entry, err := s.Get(name, true)
		if err != nil {
			fail("get_key", err)
		}
		if entry == nil {
			fail("get_key", &stash.Error{
				Kind:    stash.ErrKeyNotFound,
				Message: fmt.Sprintf("Key %s not found", name),
			})
		}

		if getJSON {
			out, err := json.Marshal(entryToMap(entry))
			if err != nil {
				fail("get_key", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Println(prettifyEntry(entry))
		return nil
	},
}

func init() {
	getKeyCmd.Flags().BoolVarP(&getJSON, "json", "j", false, "print as JSON")
}

func entryToMap(e *stash.Entry) map[string]any {
	m := map[string]any{
		"name":        e.Name,
		"value":       e.Value,
		"description": e.Description,
		"metadata":    e.Metadata,
		"uid":         e.UID,
		"created_at":  e.CreatedAt,
		"modified_at": e.ModifiedAt,
	}
	return m
}

func prettifyEntry(e *stash.Entry) string {
	fields := []fieldEntry{
		{Key: "name", Value: e.Name},
	}
	if e.Description != nil {
		fields = append(fields, fieldEntry{Key: "description", Value: *e.Description})
	}
	if e.Metadata != nil {
		fields = append(fields, fieldEntry{Key: "metadata", Value: renderMapping(e.Metadata)})
	}
	fields = append(fields, fieldEntry{Key: "value", Value: renderMapping(e.Value)})
	fields = append(fields, fieldEntry{Key: "uid", Value: e.UID})
	fields = append(fields, fieldEntry{Key: "created_at", Value: e.CreatedAt})
	fields = append(fields, fieldEntry{Key: "modified_at", Value: e.ModifiedAt})
	return prettifyDict(fields)
}

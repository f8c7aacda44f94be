package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportKeysCmd = &cobra.Command{
	Use:   "export_keys",
	Short: "Export all keys to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStash("")
		if err != nil {
			fail("export_keys", err)
		}
		defer s.Close()

		records, err := s.Export(exportOutput)
		if err != nil {
			fail("export_keys", err)
		}

		if exportOutput != "" {
			fmt.Printf("Exported %d keys to %s\n", len(records), exportOutput)
		} else {
			fmt.Printf("Exported %d keys\n", len(records))
		}
		return nil
	},
}

func init() {
	exportKeysCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write the export to")
}

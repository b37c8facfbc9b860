package cli

import (
	"fmt"

	"github.com/kolah/ontogen/internal/extract"
	"github.com/spf13/cobra"
)

func NewExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract file...",
		Short: "Print the plain text of PDF, DOCX and TXT files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				text, err := extract.File(path)
				if err != nil {
					return fmt.Errorf("extracting %s: %w", path, err)
				}
				if len(args) > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", path)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
}

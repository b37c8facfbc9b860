package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kolah/ontogen/internal/config"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "ontogen",
		Short:   "ontogen - OpenAPI to OWL ontology converter",
		Version: "1.0.0",

		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindCommonFlags(root)
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		NewConvertCmd(),
		NewServeCmd(),
		NewExtractCmd(),
	)

	return root
}

// newLogger writes text logs to stderr at the --log-level level, or at
// fallback when the flag is unset.
func newLogger(cmd *cobra.Command, fallback slog.Level) (*slog.Logger, error) {
	level := fallback
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", v, err)
		}
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

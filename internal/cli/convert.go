package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolah/ontogen/internal/config"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/loader"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallel bounds concurrent conversions of one invocation.
const maxParallel = 4

func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [spec...]",
		Short: "Convert OpenAPI/Swagger documents into OWL ontologies",
		RunE:  runConvert(nil),
	}

	flags := cmd.PersistentFlags()
	flags.StringP("output-dir", "o", "", "Output directory for ontology files")
	flags.Bool("dry-run", false, "Print the ontologies instead of writing files")
	cmd.Flags().StringSliceP("format", "f", nil, "Output formats: turtle, rdfxml, all")

	cmd.AddCommand(
		newConvertFormatCmd("turtle", "Convert to Turtle (.ttl)"),
		newConvertFormatCmd("rdfxml", "Convert to RDF/XML (.rdf)"),
		newConvertFormatCmd(convert.FormatAll, "Convert to every supported format"),
	)

	return cmd
}

func newConvertFormatCmd(format, short string) *cobra.Command {
	return &cobra.Command{
		Use:   format + " [spec...]",
		Short: short,
		RunE:  runConvert([]string{format}),
	}
}

type converted struct {
	spec   string
	result *convert.Result
}

// runConvert converts every spec file. formats overrides the configured
// formats when set.
func runConvert(formats []string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd, args)
		if err != nil {
			return err
		}
		if err := cfg.RequireSpecs(); err != nil {
			return err
		}
		selected := formats
		if selected == nil {
			selected = cfg.Formats
		}

		logger, err := newLogger(cmd, slog.LevelError)
		if err != nil {
			return err
		}

		conv, err := convert.New(convert.Options{
			TemplatesDir: cfg.Templates.Dir,
			Logger:       logger,
			FetchTimeout: cfg.Fetch.Timeout,
		})
		if err != nil {
			return fmt.Errorf("creating converter: %w", err)
		}

		if err := checkOutputNames(cfg.Specs); err != nil {
			return err
		}

		results := make([]converted, len(cfg.Specs))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(maxParallel)
		for i, spec := range cfg.Specs {
			g.Go(func() error {
				data, baseDir, err := loader.ReadFile(spec)
				if err != nil {
					return err
				}
				res, err := conv.Convert(ctx, convert.Input{
					Data:     data,
					BaseDir:  baseDir,
					BaseURI:  cfg.BaseURI,
					Formats:  selected,
					MaxDepth: cfg.MaxDepth,
					Dedup:    cfg.DedupMode(),
					Strict:   cfg.Strict,
				})
				if err != nil {
					return fmt.Errorf("converting %s: %w", spec, err)
				}
				results[i] = converted{spec: spec, result: res}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !dryRun {
			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}

		for _, c := range results {
			for _, w := range c.result.Warnings {
				cmd.PrintErrf("Warning: %s: %s\n", c.spec, w)
			}

			for _, out := range c.result.Outputs {
				name := outputBase(c.spec) + out.Extension
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", name, out.Content)
					continue
				}
				path := filepath.Join(cfg.OutputDir, name)
				if err := os.WriteFile(path, []byte(out.Content), 0644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				cmd.PrintErrf("Written: %s\n", path)
			}
			cmd.PrintErrf("Converted %s with %d warning(s)\n", c.spec, len(c.result.Warnings))
		}

		return nil
	}
}

func outputBase(spec string) string {
	base := filepath.Base(spec)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// checkOutputNames rejects inputs that would write the same output files.
func checkOutputNames(specs []string) error {
	seen := make(map[string]string, len(specs))
	for _, spec := range specs {
		base := outputBase(spec)
		if prev, ok := seen[base]; ok {
			return fmt.Errorf("%s and %s would both be written as %s.*", prev, spec, base)
		}
		seen[base] = spec
	}
	return nil
}

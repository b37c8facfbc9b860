package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kolah/ontogen/internal/config"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/server"
	"github.com/kolah/ontogen/internal/upload"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	config.BindServerFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd, nil)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, slog.LevelInfo)
	if err != nil {
		return err
	}

	conv, err := convert.New(convert.Options{
		TemplatesDir:          cfg.Templates.Dir,
		Logger:                logger,
		FetchTimeout:          cfg.Fetch.Timeout,
		DisableFileReferences: true,
	})
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Server.UploadURL != "" {
		opts = append(opts, server.WithUploader(upload.New(cfg.Server.UploadURL, upload.WithLogger(logger))))
	} else {
		logger.Warn("no upload-url configured, upload endpoint disabled")
	}

	srv, err := server.New(conv, server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		BaseURI:        cfg.BaseURI,
		MaxDepth:       cfg.MaxDepth,
		Dedup:          cfg.DedupMode(),
		Strict:         cfg.Strict,
	}, opts...)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

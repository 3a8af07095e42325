package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/light-bringer/procat-editor/internal/app/editor/coordinator"
	"github.com/light-bringer/procat-editor/internal/app/editor/replay"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
	"github.com/light-bringer/procat-editor/internal/pkg/otel"
	"github.com/light-bringer/procat-editor/internal/platform/config"
	"github.com/light-bringer/procat-editor/internal/services"
	httphandler "github.com/light-bringer/procat-editor/internal/transport/http"
)

type runFlags struct {
	dryRun  bool
	local   bool
	baseURL string
	quiet   time.Duration
	locale  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "editor-replay",
		Short:         "Replay scripted scenario package editor sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Run a session script against the editor coordinator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runScript(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "save to memory instead of the API")
	cmd.Flags().BoolVar(&f.local, "local", false, "save in-process through Spanner instead of the HTTP API")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "scenario package API base URL (default EDITOR_API_BASE_URL)")
	cmd.Flags().DurationVar(&f.quiet, "quiet", 0, "autosave quiet period (default EDITOR_AUTOSAVE_QUIET_PERIOD)")
	cmd.Flags().StringVar(&f.locale, "locale", "", "message locale (default EDITOR_LOCALE)")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "local")
	return cmd
}

func runScript(ctx context.Context, out, errOut io.Writer, path string, f runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(errOut, cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	shutdownTracing, err := otel.Setup(ctx, "editor-replay", cfg.Observability)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	script, err := replay.Load(path)
	if err != nil {
		return err
	}

	backend, closeBackend, err := newBackend(ctx, cfg, f, script, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	settings := coordinator.SettingsFromConfig(cfg.Editor)
	if f.quiet > 0 {
		settings.QuietPeriod = f.quiet
	}
	if f.locale != "" {
		settings.Locale = f.locale
	}

	runner := replay.NewRunner(out, backend, replay.WithLogger(logger))
	coord := coordinator.New(settings,
		coordinator.WithLogger(logger),
		coordinator.WithNotifier(runner))
	return runner.Run(ctx, coord, script)
}

func newBackend(ctx context.Context, cfg *config.Config, f runFlags, script *replay.Script, logger *slog.Logger) (replay.Backend, func(), error) {
	switch {
	case f.dryRun:
		return replay.NewDryRun(script), func() {}, nil
	case f.local:
		opts, err := services.NewServiceOptions(ctx, cfg.Server.SpannerDB, logger)
		if err != nil {
			return nil, nil, err
		}
		return &localBackend{opts: opts}, opts.Close, nil
	default:
		baseURL := f.baseURL
		if baseURL == "" {
			baseURL = cfg.Editor.APIBaseURL
		}
		client := httphandler.NewSectionClient(baseURL, &http.Client{Timeout: 30 * time.Second})
		return &httpBackend{client: client}, func() {}, nil
	}
}

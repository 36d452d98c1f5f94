package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"studytrack/internal/bootstrap"
	outboxdto "studytrack/internal/modules/outbox/dto"
	"studytrack/internal/platform/config"
	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "studytrack",
		Short:         "Study progress tracker with offline sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory holding config and local state")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (defaults to <data-dir>/config.yaml)")

	root.AddCommand(newTrackCmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newOutboxCmd(flags))
	root.AddCommand(newProgressCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "studytrack")
	}
	return ".studytrack"
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.dataDir, flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})
	return cfg, nil
}

func loadApp(flags *globalFlags, opts bootstrap.Options) (*bootstrap.App, config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, config.Config{}, err
	}
	app, err := bootstrap.New(cfg, opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	return app, cfg, nil
}

func newTrackCmd(flags *globalFlags) *cobra.Command {
	var metricsAddr string
	var keepOpen bool
	track := &cobra.Command{
		Use:   "track",
		Short: "Read player events as JSON lines on stdin and track them",
		Long: "Reads one event per line: lesson_opened, lesson_closed, playback_time_update,\n" +
			"visibility_pause and visibility_resume. Completion and sync failure events are\n" +
			"written to stdout as JSON lines.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, cfg, err := loadApp(flags, bootstrap.Options{Events: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logging.Warn().Err(err).Msg("close app")
				}
			}()

			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr)
				defer shutdown()
			}

			if err := app.Start(ctx); err != nil {
				return err
			}
			stats, err := app.TrackerStream.Serve(ctx, cmd.InOrStdin())
			logging.Info().Int("handled", stats.Handled).Int("rejected", stats.Rejected).Msg("event stream finished")
			if errors.Is(err, context.Canceled) {
				// Interrupted: the open session stays persisted and is restored next run.
				return nil
			}
			if err != nil {
				return err
			}
			if keepOpen {
				return nil
			}
			return app.Finish(ctx)
		},
	}
	track.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	track.Flags().BoolVar(&keepOpen, "keep-open", false, "leave the open lesson's session persisted at end of input")
	return track
}

func serveMetrics(addr string) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logging.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func newSessionCmd(flags *globalFlags) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Inspect or finish the persisted study session"}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session without resuming it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Status(cmd.Context())
			if errors.Is(err, apperrors.ErrNoActiveSession) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active session")
				return nil
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s course=%s lesson=%s state=%s duration=%.0fs progress=%.1f%% last_updated=%s\n",
				out.SessionID, out.CourseID, out.LessonID, out.State, out.Duration, out.Progress, out.LastUpdated.Format(time.RFC3339))
			return nil
		},
	}

	end := &cobra.Command{
		Use:   "end",
		Short: "Finalize and log the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			restored, out, err := app.SessionCLI.End(cmd.Context())
			if errors.Is(err, apperrors.ErrNoActiveSession) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active session")
				return nil
			}
			if err != nil {
				return err
			}
			how := "ended"
			if restored.Finalized {
				how = "finalized (stale)"
			}
			logged := "logged"
			if !out.Logged {
				logged = "discarded (too short)"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s %s: course=%s lesson=%s duration=%.0fs %s\n", out.SessionID, how, out.CourseID, out.LessonID, out.Duration, logged)
			return nil
		},
	}

	session.AddCommand(status, end)
	return session
}

func newOutboxCmd(flags *globalFlags) *cobra.Command {
	outbox := &cobra.Command{Use: "outbox", Short: "Offline outbox of unsent records"}

	var queue string
	list := &cobra.Command{
		Use:   "list",
		Short: "List queued records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			queues := []string{outboxdto.QueueSessionLogs, outboxdto.QueueVideoProgress}
			if queue != "" {
				queues = []string{queue}
			}
			for _, q := range queues {
				entries, err := app.OutboxCLI.List(cmd.Context(), q)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", q, len(entries))
				for _, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s %s %s\n", e.EnqueuedAt.Format(time.RFC3339), e.ID, e.Kind, e.Endpoint, e.Payload)
				}
			}
			return nil
		},
	}
	list.Flags().StringVar(&queue, "queue", "", "pendingStudyLogs or offline_progress (default: both)")

	drain := &cobra.Command{
		Use:   "drain",
		Short: "Retry every queued record once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.OutboxCLI.Drain(cmd.Context(), queue)
			if err != nil {
				return err
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: delivered=%d remaining=%d\n", r.Queue, r.Delivered, r.Remaining)
			}
			return nil
		},
	}
	drain.Flags().StringVar(&queue, "queue", "", "pendingStudyLogs or offline_progress (default: both)")

	outbox.AddCommand(list, drain)
	return outbox
}

func newProgressCmd(flags *globalFlags) *cobra.Command {
	progress := &cobra.Command{Use: "progress", Short: "Lesson and course progress"}

	var courseID, lessonID string
	show := &cobra.Command{
		Use:   "show --course <id> --lesson <id>",
		Short: "Show the last known progress of a lesson",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ProgressCLI.Show(cmd.Context(), courseID, lessonID)
			if errors.Is(err, apperrors.ErrNotFound) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no progress recorded")
				return nil
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s/%s at %.1fs of %.1fs (%.1f%%) completed=%t as of %s\n",
				out.CourseID, out.LessonID, out.CurrentTime, out.Duration, out.Percentage, out.Completed, out.Timestamp.Format(time.RFC3339))
			return nil
		},
	}
	show.Flags().StringVar(&courseID, "course", "", "course id")
	show.Flags().StringVar(&lessonID, "lesson", "", "lesson id")

	var percentage float64
	var meta map[string]string
	course := &cobra.Command{
		Use:   "course --course <id> --percentage <0..100>",
		Short: "Save overall course progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(courseID) == "" {
				return fmt.Errorf("--course is required")
			}
			app, _, err := loadApp(flags, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ProgressCLI.SaveCourse(cmd.Context(), courseID, percentage, metadata(meta))
			if err != nil {
				return err
			}
			state := "saved"
			if !out.Synced {
				state = "queued for retry"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "course %s progress %.1f%% %s\n", out.CourseID, out.Percentage, state)
			return nil
		},
	}
	course.Flags().StringVar(&courseID, "course", "", "course id")
	course.Flags().Float64Var(&percentage, "percentage", 0, "overall course progress (0..100)")
	course.Flags().StringToStringVar(&meta, "meta", nil, "metadata key=value pairs")

	progress.AddCommand(show, course)
	return progress
}

// metadata keeps numeric and boolean flag values typed in the JSON payload.
func metadata(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = n
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
			continue
		}
		out[k] = v
	}
	return out
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to <data-dir>/config.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configPath
			if path == "" {
				path = filepath.Join(flags.dataDir, config.DefaultFileName)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			raw, err := config.RenderDefault(flags.dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}

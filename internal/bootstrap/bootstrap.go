package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"

	outboxinadapter "studytrack/internal/modules/outbox/adapter/in"
	outboxoutadapter "studytrack/internal/modules/outbox/adapter/out"
	outboxdomain "studytrack/internal/modules/outbox/domain"
	outboxin "studytrack/internal/modules/outbox/port/in"
	outboxservice "studytrack/internal/modules/outbox/service"
	outboxusecase "studytrack/internal/modules/outbox/usecase"
	progressinadapter "studytrack/internal/modules/progress/adapter/in"
	progressoutadapter "studytrack/internal/modules/progress/adapter/out"
	progressdomain "studytrack/internal/modules/progress/domain"
	progressin "studytrack/internal/modules/progress/port/in"
	progressservice "studytrack/internal/modules/progress/service"
	progressusecase "studytrack/internal/modules/progress/usecase"
	sessioninadapter "studytrack/internal/modules/session/adapter/in"
	sessionoutadapter "studytrack/internal/modules/session/adapter/out"
	sessionin "studytrack/internal/modules/session/port/in"
	sessionout "studytrack/internal/modules/session/port/out"
	sessionservice "studytrack/internal/modules/session/service"
	sessionusecase "studytrack/internal/modules/session/usecase"
	trackerinadapter "studytrack/internal/modules/tracker/adapter/in"
	trackerin "studytrack/internal/modules/tracker/port/in"
	trackerusecase "studytrack/internal/modules/tracker/usecase"
	"studytrack/internal/platform/clock"
	"studytrack/internal/platform/config"
	"studytrack/internal/platform/id"
	"studytrack/internal/platform/kv"
	"studytrack/internal/platform/logging"
	"studytrack/internal/platform/notify"
	"studytrack/internal/platform/syncclient"
)

// Options overrides process-level collaborators. Zero values mean the system
// clock, real timers and no event stream.
type Options struct {
	Clock      clock.Clock
	Scheduler  clock.Scheduler
	HTTPClient *http.Client
	// Events receives completed and sync_failure notifications as JSON lines.
	Events io.Writer
}

type App struct {
	SessionCLI    sessioninadapter.CLIHandler
	ProgressCLI   progressinadapter.CLIHandler
	OutboxCLI     outboxinadapter.CLIHandler
	TrackerStream trackerinadapter.JSONLinesHandler

	tracker  trackerin.Usecase
	sessions sessionin.Usecase
	progress progressin.Usecase
	outbox   outboxin.Usecase
	store    kv.Store
}

func New(cfg config.Config, opts Options) (*App, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = clock.SystemScheduler{}
	}
	ids := id.UUID{}

	store, err := kv.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	sinks := notify.Multi{notify.Log{}}
	if opts.Events != nil {
		sinks = append(sinks, notify.NewJSONLines(opts.Events))
	}
	notifier := notify.NewThrottle(sinks, cfg.Notify.FailureInterval, clk)

	client := syncclient.New(syncclient.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		HTTPClient:      opts.HTTPClient,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerCooldown: cfg.API.BreakerCooldown,
	})

	outboxUC := outboxusecase.NewInteractor(
		outboxservice.NewOutboxService(clk, ids, outboxoutadapter.NewKVQueueStore(store), cfg.Outbox.Capacity, outboxdomain.Policy(cfg.Outbox.Policy)),
		outboxoutadapter.NewRemoteSender(client),
	)

	var journal sessionout.SessionJournal
	if cfg.Journal.Enabled {
		journal = sessionoutadapter.NewMarkdownJournal(cfg.DataDir)
	}
	sessionUC := sessionusecase.NewManager(
		sessionservice.NewSessionService(clk, ids),
		scheduler,
		sessionoutadapter.NewKVActiveSessionStore(store),
		sessionoutadapter.NewRemoteSessionLogger(client, outboxUC, notifier, clk),
		journal,
		sessionusecase.Options{
			HeartbeatInterval: cfg.Session.HeartbeatInterval,
			StaleAfter:        cfg.Session.StaleAfter,
			MinLogDuration:    cfg.Session.MinLogDuration,
		},
	)

	progressUC := progressusecase.NewInteractor(
		progressservice.NewProgressService(clk, progressdomain.Thresholds{
			Time:       cfg.Progress.TimeThreshold,
			Percent:    cfg.Progress.PercentThreshold,
			Completion: cfg.Progress.CompletionPercent,
		}),
		progressoutadapter.NewRemoteProgressSink(client, outboxUC, notifier, clk),
		progressoutadapter.NewKVProgressCache(store),
		progressoutadapter.NewEventCompletionNotifier(notifier, clk),
	)

	trackerUC := trackerusecase.NewInteractor(sessionUC, progressUC)

	return &App{
		SessionCLI:    sessioninadapter.NewCLIHandler(sessionUC),
		ProgressCLI:   progressinadapter.NewCLIHandler(progressUC),
		OutboxCLI:     outboxinadapter.NewCLIHandler(outboxUC),
		TrackerStream: trackerinadapter.NewJSONLinesHandler(trackerUC),
		tracker:       trackerUC,
		sessions:      sessionUC,
		progress:      progressUC,
		outbox:        outboxUC,
		store:         store,
	}, nil
}

// Start restores a session left by the previous run and kicks off a
// background drain of the outbox.
func (a *App) Start(ctx context.Context) error {
	restored, err := a.sessions.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if restored.Restored {
		logging.Info().Str("session_id", restored.Session.SessionID).Bool("finalized", restored.Finalized).Msg("previous session restored")
	}
	a.outbox.TriggerDrain(ctx)
	return nil
}

// Finish closes the open lesson, logging its session.
func (a *App) Finish(ctx context.Context) error {
	return a.tracker.Finish(ctx)
}

// Close leaves any open session persisted for the next Start.
func (a *App) Close() error {
	a.tracker.Detach()
	a.progress.Wait()
	a.sessions.Close()
	a.outbox.Wait()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}

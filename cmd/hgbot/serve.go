package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/hgbot/hgbot/internal/channel"
	"github.com/hgbot/hgbot/internal/channel/adapters/telegram"
	"github.com/hgbot/hgbot/internal/channel/inbound"
	"github.com/hgbot/hgbot/internal/config"
	"github.com/hgbot/hgbot/internal/conversation"
	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/handlers"
	channelchecker "github.com/hgbot/hgbot/internal/healthcheck/checkers/channel"
	storagechecker "github.com/hgbot/hgbot/internal/healthcheck/checkers/storage"
	"github.com/hgbot/hgbot/internal/logger"
	"github.com/hgbot/hgbot/internal/metrics"
	"github.com/hgbot/hgbot/internal/report"
	"github.com/hgbot/hgbot/internal/roster"
	"github.com/hgbot/hgbot/internal/schedule"
	"github.com/hgbot/hgbot/internal/server"
	"github.com/hgbot/hgbot/internal/session"
	"github.com/hgbot/hgbot/internal/settings"
	"github.com/hgbot/hgbot/internal/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the reminder scheduler and the HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(serveOptions(opts)...)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func serveOptions(opts *rootOptions) []fx.Option {
	return []fx.Option{
		fx.Provide(
			opts.load,
			provideLogger,
			provideLocation,
			provideStore,
			provideDirectory,
			provideRoster,
			session.NewStore,
			provideMetrics,
			provideAssembler,
			provideSettings,
			provideEngine,
			provideTelegramAdapter,
			provideScheduler,
			provideChannelRouter,
			provideChannelManager,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideMetricsHandler),
			provideServerHandler(provideRemindersHandler),
			provideServer,
		),
		fx.Invoke(
			startDirectory,
			startChannelManager,
			startScheduleService,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(lc fx.Lifecycle, cfg config.Config) *slog.Logger {
	log := logger.Init(cfg.Log)
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return logger.Close() }})
	return log
}

func provideLocation(cfg config.Config) (*time.Location, error) {
	return loadLocation(cfg.Bot.Timezone)
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := openStore(ctx, log, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
	return store, nil
}

func provideDirectory(log *slog.Logger, store storage.Store) *directory.Directory {
	return directory.New(log, store)
}

func provideRoster(log *slog.Logger, store storage.Store) *roster.Cache {
	return roster.New(log, store)
}

func provideMetrics(sessions *session.Store) *metrics.Metrics {
	return metrics.New(sessions.Len)
}

func provideAssembler(log *slog.Logger, store storage.Store, m *metrics.Metrics) *report.Assembler {
	return report.NewAssembler(log, store, report.WithObserver(func(batch string) {
		m.Submissions.WithLabelValues(batch).Inc()
	}))
}

func provideSettings(log *slog.Logger, store storage.Store) *settings.Service {
	return settings.NewService(log, store)
}

func provideEngine(log *slog.Logger, rosters *roster.Cache, store storage.Store, assembler *report.Assembler, loc *time.Location) *conversation.Engine {
	return conversation.NewEngine(log, rosters, store, assembler, conversation.WithLocation(loc))
}

func provideTelegramAdapter(log *slog.Logger, cfg config.Config) channel.Adapter {
	return telegram.NewTelegramAdapter(log, cfg.Telegram)
}

func provideScheduler(log *slog.Logger, cfg config.Config, loc *time.Location, store storage.Store, dir *directory.Directory, templates *settings.Service, adapter channel.Adapter, m *metrics.Metrics) (*schedule.Service, error) {
	return schedule.NewService(log, cfg.Reminders, loc, store, dir, templates, channel.ChunkedSender{Sender: adapter}, schedule.WithMetrics(m))
}

func provideChannelRouter(log *slog.Logger, cfg config.Config, dir *directory.Directory, sessions *session.Store, engine *conversation.Engine, scheduler *schedule.Service, m *metrics.Metrics) *inbound.ChannelInboundProcessor {
	var reminders inbound.Reminders
	if cfg.Reminders.Enabled {
		reminders = scheduler
	}
	return inbound.NewChannelInboundProcessor(log, dir, sessions, engine, reminders, cfg.Bot, m)
}

func provideChannelManager(log *slog.Logger, adapter channel.Adapter, router *inbound.ChannelInboundProcessor) *channel.Manager {
	return channel.NewManager(log, adapter, router)
}

func providePingHandler(log *slog.Logger, cfg config.Config, store storage.Store, manager *channel.Manager) *handlers.PingHandler {
	return handlers.NewPingHandler(log,
		storagechecker.NewChecker(log, cfg.Storage.Driver, store),
		channelchecker.NewChecker(log, "telegram", manager),
	)
}

func provideMetricsHandler(m *metrics.Metrics) *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(m.Handler())
}

func provideRemindersHandler(scheduler *schedule.Service) *handlers.RemindersHandler {
	return handlers.NewRemindersHandler(scheduler)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startDirectory(lc fx.Lifecycle, dir *directory.Directory) {
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error { return dir.Load(ctx) }})
}

func startChannelManager(lc fx.Lifecycle, channelManager *channel.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return channelManager.Start(ctx) },
		OnStop:  func(stopCtx context.Context) error { cancel(); return channelManager.Shutdown(stopCtx) },
	})
}

func startScheduleService(lc fx.Lifecycle, scheduleService *schedule.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return scheduleService.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return scheduleService.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting hgbot",
				slog.String("version", versionString()),
				slog.String("storage", cfg.Storage.Driver),
				slog.String("addr", srv.Addr()),
			)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

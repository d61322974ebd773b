package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/hgbot/hgbot/internal/channel"
	"github.com/hgbot/hgbot/internal/channel/adapters/telegram"
	"github.com/hgbot/hgbot/internal/directory"
	"github.com/hgbot/hgbot/internal/logger"
	"github.com/hgbot/hgbot/internal/schedule"
	"github.com/hgbot/hgbot/internal/settings"
)

func newRemindCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the stale-report sweep once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logger.Init(cfg.Log)
			defer func() { _ = logger.Close() }()

			loc, err := loadLocation(cfg.Bot.Timezone)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			store, err := openStore(ctx, log, cfg, false)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			dir := directory.New(log, store)
			if err := dir.Load(ctx); err != nil {
				return err
			}
			var notifier schedule.Notifier = channel.ChunkedSender{Sender: telegram.NewTelegramAdapter(log, cfg.Telegram)}
			if dryRun {
				notifier = &printNotifier{out: cmd.OutOrStdout()}
			}
			svc, err := schedule.NewService(log, cfg.Reminders, loc, store, dir, settings.NewService(log, store), notifier)
			if err != nil {
				return err
			}

			sent, err := svc.RunSweep(ctx)
			for _, leader := range sent {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), leader)
			}
			if err != nil {
				log.Error("sweep finished with errors", slog.Int("sent", len(sent)), slog.Any("error", err))
				return err
			}
			log.Info("sweep finished", slog.Int("sent", len(sent)), slog.Bool("dry_run", dryRun))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the reminders instead of sending them.")
	return cmd
}

// printNotifier writes reminders to out instead of the chat.
type printNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printNotifier) Send(_ context.Context, msg channel.OutboundMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "--- chat %d ---\n%s\n", msg.ChatID, msg.Text)
	return err
}

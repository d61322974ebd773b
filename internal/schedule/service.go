// Package schedule sends reminder messages to group leaders: a weekly sweep
// over groups without recent reports, and per-group messages around each
// group's regular meeting time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/hgbot/hgbot/internal/channel"
	"github.com/hgbot/hgbot/internal/config"
	"github.com/hgbot/hgbot/internal/metrics"
	"github.com/hgbot/hgbot/internal/settings"
	"github.com/hgbot/hgbot/internal/storage"
)

// Job names, used in logs and metrics.
const (
	JobStaleSweep    = "stale_sweep"
	JobBeforeMeeting = "before_meeting"
	JobAfterMeeting  = "after_meeting"
)

const jobTimeout = 5 * time.Minute

// Directory maps leader handles to numeric chat ids.
type Directory interface {
	NumericID(handle string) (int64, bool)
}

// Templates returns the message variants stored under a key.
type Templates interface {
	Values(ctx context.Context, key string) []string
}

// Notifier delivers one message to a chat.
type Notifier interface {
	Send(ctx context.Context, msg channel.OutboundMessage) error
}

// Service owns the cron runner and the reminder jobs.
type Service struct {
	store     storage.ReminderReader
	directory Directory
	templates Templates
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger

	loc         *time.Location
	meetingZone *time.Location
	staleAfter  int
	sweepSpec   string
	enabled     bool
	before      time.Duration
	after       time.Duration

	limiter *rate.Limiter
	now     func() time.Time
	pick    func(n int) int

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPicker overrides the random template choice; pick returns an index below n.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) { s.pick = pick }
}

// WithMetrics records sent reminders and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService validates cfg and builds a stopped scheduler running in loc.
func NewService(
	log *slog.Logger,
	cfg config.RemindersConfig,
	loc *time.Location,
	store storage.ReminderReader,
	dir Directory,
	templates Templates,
	notifier Notifier,
	opts ...Option,
) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	before, err := parseOffset(cfg.BeforeOffset)
	if err != nil {
		return nil, fmt.Errorf("before_offset: %w", err)
	}
	after, err := parseOffset(cfg.AfterOffset)
	if err != nil {
		return nil, fmt.Errorf("after_offset: %w", err)
	}
	if _, err := cron.ParseStandard(cfg.SweepSpec); err != nil {
		return nil, fmt.Errorf("sweep_spec: %w", err)
	}
	ratePerSec := cfg.SendRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = config.DefaultSendRatePerSec
	}
	s := &Service{
		store:       store,
		directory:   dir,
		templates:   templates,
		notifier:    notifier,
		logger:      log.With(slog.String("service", "schedule")),
		loc:         loc,
		meetingZone: time.FixedZone(fmt.Sprintf("UTC%+d", cfg.MeetingUTCOffsetHours), cfg.MeetingUTCOffsetHours*3600),
		staleAfter:  cfg.StaleAfterDays,
		sweepSpec:   cfg.SweepSpec,
		enabled:     cfg.Enabled,
		before:      before,
		after:       after,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		now:         time.Now,
		pick:        rand.IntN,
		entries:     map[string]cron.EntryID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func parseOffset(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

// Start registers the sweep and the per-group meeting jobs, then starts the
// runner. Groups without a usable weekday or time are skipped with a warning.
func (s *Service) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("reminders disabled")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	cl := cronLogger{log: s.logger}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	if err := s.add(c, JobStaleSweep, s.sweepSpec, func(ctx context.Context) error {
		_, err := s.RunSweep(ctx)
		return err
	}); err != nil {
		return err
	}

	groups, err := s.store.ListGroupStatuses(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if !g.Active {
			continue
		}
		s.registerMeetingJobs(c, g)
	}
	c.Start()
	s.cron = c
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.entries)), slog.String("location", s.loc.String()))
	return nil
}

// Stop halts the runner and waits for running jobs until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.entries = map[string]cron.EntryID{}
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the registered job keys with their next run time.
func (s *Service) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for key, id := range s.entries {
		if s.cron != nil {
			out[key] = s.cron.Entry(id).Next
		}
	}
	return out
}

func (s *Service) registerMeetingJobs(c *cron.Cron, g storage.GroupStatus) {
	log := s.logger.With(slog.String("group_id", g.GroupID))
	if g.MeetingWeekday == nil {
		log.Warn("group has no meeting weekday, skipping reminders")
		return
	}
	clock, err := parseMeetingTime(g.MeetingTime)
	if err != nil {
		log.Warn("group has no usable meeting time, skipping reminders", slog.Any("error", err))
		return
	}
	ref := s.now()
	beforeSpec := weeklySpec(*g.MeetingWeekday, clock, -s.before, s.meetingZone, s.loc, ref)
	afterSpec := weeklySpec(*g.MeetingWeekday, clock, s.after, s.meetingZone, s.loc, ref)

	group := g
	if err := s.add(c, JobBeforeMeeting+":"+g.GroupID, beforeSpec, func(ctx context.Context) error {
		return s.remindMeeting(ctx, group, JobBeforeMeeting)
	}); err != nil {
		log.Warn("register before-meeting job failed", slog.Any("error", err))
	}
	if err := s.add(c, JobAfterMeeting+":"+g.GroupID, afterSpec, func(ctx context.Context) error {
		return s.remindMeeting(ctx, group, JobAfterMeeting)
	}); err != nil {
		log.Warn("register after-meeting job failed", slog.Any("error", err))
	}
}

func (s *Service) add(c *cron.Cron, key, spec string, fn func(ctx context.Context) error) error {
	id, err := c.AddFunc(spec, s.wrap(key, fn))
	if err != nil {
		return fmt.Errorf("add job %s (%s): %w", key, spec, err)
	}
	s.entries[key] = id
	s.logger.Debug("job registered", slog.String("job", key), slog.String("spec", spec))
	return nil
}

// wrap isolates one job run: errors and panics are logged and counted, and
// never reach the runner.
func (s *Service) wrap(key string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panic", slog.String("job", key), slog.Any("panic", r))
				s.countError()
			}
		}()
		if err := fn(ctx); err != nil {
			s.logger.Error("job failed", slog.String("job", key), slog.Any("error", err))
			s.countError()
		}
	}
}

// RunSweep messages the leaders of active groups whose latest report is
// older than the stale window, or who never reported. It returns one
// "leader (@handle)" entry per delivered message.
func (s *Service) RunSweep(ctx context.Context) ([]string, error) {
	groups, err := s.store.ListGroupStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	allowed, err := s.allowList(ctx)
	if err != nil {
		return nil, err
	}
	today := storage.DateOnly(s.now().In(s.loc))
	cutoff := today.AddDate(0, 0, -s.staleAfter)
	s.logger.Info("stale sweep", slog.String("cutoff", cutoff.Format(time.DateOnly)), slog.Int("groups", len(groups)))

	var sent []string
	var errs []error
	for _, g := range groups {
		if !g.Active || !g.StaleBefore(cutoff) {
			continue
		}
		vars := templateVars{leader: g.LeaderName, group: g.GroupID, lastDate: formatLongDate(g.LastReport)}
		for _, handle := range g.Handles {
			ok, err := s.notify(ctx, allowed, handle, settings.KeyStaleReport, vars, JobStaleSweep)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				sent = append(sent, fmt.Sprintf("%s (@%s)", g.LeaderName, handle))
			}
		}
	}
	return sent, errors.Join(errs...)
}

func (s *Service) remindMeeting(ctx context.Context, g storage.GroupStatus, job string) error {
	key := settings.KeyBeforeMeeting
	if job == JobAfterMeeting {
		key = settings.KeyAfterMeeting
		meetingDay := storage.DateOnly(s.now().In(s.meetingZone).Add(-s.after))
		done, err := s.store.HasReport(ctx, g.GroupID, meetingDay)
		if err != nil {
			return fmt.Errorf("check report: %w", err)
		}
		if done {
			s.logger.Debug("report already in, skipping", slog.String("group_id", g.GroupID))
			return nil
		}
	}
	allowed, err := s.allowList(ctx)
	if err != nil {
		return err
	}
	vars := templateVars{leader: g.LeaderName, group: g.GroupID, lastDate: formatLongDate(g.LastReport), time: g.MeetingTime}
	var errs []error
	for _, handle := range g.Handles {
		if _, err := s.notify(ctx, allowed, handle, key, vars, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) allowList(ctx context.Context) (map[string]struct{}, error) {
	handles, err := s.store.ListReminderRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminder recipients: %w", err)
	}
	out := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		if h = storage.NormalizeHandle(h); h != "" {
			out[h] = struct{}{}
		}
	}
	return out, nil
}

// notify sends one rendered template to handle. Handles that are not
// allow-listed or have no bound chat id are skipped without error.
func (s *Service) notify(ctx context.Context, allowed map[string]struct{}, handle, key string, vars templateVars, job string) (bool, error) {
	handle = storage.NormalizeHandle(handle)
	if _, ok := allowed[handle]; !ok {
		return false, nil
	}
	chatID, ok := s.directory.NumericID(handle)
	if !ok {
		s.logger.Debug("leader has no chat id yet", slog.String("handle", handle))
		return false, nil
	}
	variants := s.templates.Values(ctx, key)
	if len(variants) == 0 {
		return false, fmt.Errorf("no templates for %s", key)
	}
	text := vars.render(variants[s.pick(len(variants))])
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if err := s.notifier.Send(ctx, channel.OutboundMessage{ChatID: chatID, Text: text}); err != nil {
		return false, fmt.Errorf("send %s reminder to @%s: %w", job, handle, err)
	}
	s.logger.Info("reminder sent", slog.String("job", job), slog.String("handle", handle))
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(job).Inc()
	}
	return true, nil
}

func (s *Service) countError() {
	if s.metrics != nil {
		s.metrics.ReminderErrors.Inc()
	}
}

type templateVars struct {
	leader   string
	group    string
	lastDate string
	time     string
}

func (v templateVars) render(tpl string) string {
	return strings.NewReplacer(
		"{leader}", v.leader,
		"{group}", v.group,
		"{last_date}", v.lastDate,
		"{time}", v.time,
	).Replace(tpl)
}

// cronLogger routes runner logs into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}

package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errStopped = errors.New("channel manager stopped")

// InboundProcessor handles one normalized event. Replies go through sender.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, event Event, sender Sender) error
}

// Manager owns the platform connection and dispatches inbound events to a
// fixed pool of workers. Events of one user always land on the same worker,
// so a user's updates are processed in arrival order.
type Manager struct {
	adapter   Adapter
	processor InboundProcessor
	logger    *slog.Logger

	workers   int
	queueSize int
	queues    []chan Event
	done      chan struct{}

	mu      sync.Mutex
	conn    Connection
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	senders sync.WaitGroup
}

// NewManager creates a Manager for one adapter.
func NewManager(log *slog.Logger, adapter Adapter, processor InboundProcessor) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		adapter:   adapter,
		processor: processor,
		logger:    log.With(slog.String("component", "channel")),
		workers:   4,
		queueSize: 64,
	}
}

// Start launches the worker pool and opens the inbound connection. The
// connection outlives ctx; it is closed by Shutdown.
func (m *Manager) Start(ctx context.Context) error {
	if m.adapter == nil || m.processor == nil {
		return errors.New("channel manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return nil
	}
	m.logger.Info("manager start", slog.Int("workers", m.workers))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.queues = make([]chan Event, m.workers)
	m.done = make(chan struct{})
	for i := range m.queues {
		m.queues[i] = make(chan Event, m.queueSize)
		m.wg.Add(1)
		go m.work(runCtx, m.queues[i])
	}
	conn, err := m.adapter.Connect(runCtx, m.enqueue)
	if err != nil {
		cancel()
		close(m.done)
		m.closeQueues(m.queues)
		m.queues = nil
		return err
	}
	m.conn = conn
	m.cancel = cancel
	return nil
}

// Shutdown stops the connection and waits for queued events to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	conn, cancel, queues := m.conn, m.cancel, m.queues
	m.conn, m.cancel, m.queues = nil, nil, nil
	if conn != nil {
		close(m.done)
	}
	m.mu.Unlock()
	if conn == nil {
		return nil
	}
	m.logger.Info("manager stop")
	err := conn.Stop(ctx)
	// Pending enqueues return on done; no sender is left once they drain.
	m.senders.Wait()
	m.closeQueues(queues)

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		m.logger.Warn("shutdown timed out with events in flight")
	}
	cancel()
	return err
}

// Running reports whether the inbound connection is up.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil && m.conn.Running()
}

func (m *Manager) closeQueues(queues []chan Event) {
	for _, q := range queues {
		close(q)
	}
}

func (m *Manager) enqueue(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	m.mu.Lock()
	if len(m.queues) == 0 {
		m.mu.Unlock()
		return errStopped
	}
	q := m.queues[shard(event.Sender.ID, len(m.queues))]
	done := m.done
	m.senders.Add(1)
	m.mu.Unlock()
	defer m.senders.Done()

	select {
	case q <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errStopped
	}
}

func (m *Manager) work(ctx context.Context, queue <-chan Event) {
	defer m.wg.Done()
	for event := range queue {
		if err := m.processor.HandleInbound(ctx, event, m); err != nil {
			m.logger.Error("handle inbound failed",
				slog.String("event_id", event.ID),
				slog.Int64("user_id", event.Sender.ID),
				slog.Any("error", err),
			)
		}
	}
}

func shard(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

// Send delivers msg through the adapter, see ChunkedSender.
func (m *Manager) Send(ctx context.Context, msg OutboundMessage) error {
	return ChunkedSender{Sender: m.adapter}.Send(ctx, msg)
}

// AnswerButton forwards to the adapter.
func (m *Manager) AnswerButton(ctx context.Context, callbackID, toast string) error {
	return m.adapter.AnswerButton(ctx, callbackID, toast)
}

package webfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ResponderConfig configures the NATS request/reply surface.
type ResponderConfig struct {
	// SubjectPrefix is joined with the format name, e.g. "semfetch.fetch.json".
	SubjectPrefix string

	// QueueGroup load-balances requests across responders.
	QueueGroup string
}

// GetSubjectPrefix returns the subject prefix with default.
func (c ResponderConfig) GetSubjectPrefix() string {
	if c.SubjectPrefix == "" {
		return "semfetch.fetch"
	}
	return c.SubjectPrefix
}

// GetQueueGroup returns the queue group with default.
func (c ResponderConfig) GetQueueGroup() string {
	if c.QueueGroup == "" {
		return "semfetch"
	}
	return c.QueueGroup
}

// Responder serves the fetch pipeline over NATS request/reply. Each request
// body is a JSON FetchRequest; the reply is a JSON FetchResult.
type Responder struct {
	conn    *nats.Conn
	config  ResponderConfig
	handler atomic.Pointer[Handler]
	logger  *slog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	subs    []*nats.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Metrics
	handled atomic.Int64
	errors  atomic.Int64
}

// NewResponder creates a responder. conn may be nil when only
// HandleMessage is used.
func NewResponder(conn *nats.Conn, handler *Handler, cfg ResponderConfig, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Responder{
		conn:   conn,
		config: cfg,
		logger: logger,
	}
	r.handler.Store(handler)
	return r
}

// SetHandler swaps the handler used for subsequent requests.
func (r *Responder) SetHandler(h *Handler) {
	r.handler.Store(h)
}

// Subject returns the request subject for format.
func (r *Responder) Subject(format Format) string {
	return r.config.GetSubjectPrefix() + "." + string(format)
}

// Start subscribes to one subject per format.
func (r *Responder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("responder already running")
	}
	if r.conn == nil {
		return fmt.Errorf("NATS connection required")
	}

	runCtx, cancel := context.WithCancel(ctx)

	for _, format := range Formats {
		subject := r.Subject(format)
		sub, err := r.conn.QueueSubscribe(subject, r.config.GetQueueGroup(), func(msg *nats.Msg) {
			r.dispatch(runCtx, format, msg)
		})
		if err != nil {
			cancel()
			r.unsubscribeAll()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		r.subs = append(r.subs, sub)
	}

	r.cancel = cancel
	r.running = true

	r.logger.Info("Fetch responder started",
		"subject_prefix", r.config.GetSubjectPrefix(),
		"queue_group", r.config.GetQueueGroup())

	return nil
}

// dispatch handles msg in its own goroutine so slow fetches do not block
// the subscription.
func (r *Responder) dispatch(ctx context.Context, format Format, msg *nats.Msg) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		reply := r.HandleMessage(ctx, format, msg.Data)
		if msg.Reply == "" {
			r.logger.Debug("Fetch request has no reply subject", "subject", msg.Subject)
			return
		}
		if err := msg.Respond(reply); err != nil {
			r.logger.Warn("Failed to send fetch reply", "subject", msg.Subject, "error", err)
		}
	}()
}

// HandleMessage decodes a request, runs the pipeline and encodes the result.
func (r *Responder) HandleMessage(ctx context.Context, format Format, data []byte) []byte {
	logger := r.logger.With("request_id", uuid.New().String(), "format", format)

	var result FetchResult
	var req FetchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warn("Failed to parse fetch request", "error", err)
		result = ErrorResult(fmt.Sprintf("invalid request: %v", err))
	} else {
		logger.Debug("Processing fetch request", "url", req.URL)
		result = r.handler.Load().Fetch(ctx, format, req)
	}

	r.handled.Add(1)
	if result.IsError {
		r.errors.Add(1)
	}

	out, err := json.Marshal(result)
	if err != nil {
		logger.Error("Failed to encode fetch result", "error", err)
		out, _ = json.Marshal(ErrorResult("internal error: encode result"))
	}
	return out
}

// Stop unsubscribes and waits for in-flight requests within timeout.
func (r *Responder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.unsubscribeAll()
	r.mu.Unlock()

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("stop timed out after %v", timeout)
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.logger.Info("Fetch responder stopped",
		"handled", r.handled.Load(),
		"errors", r.errors.Load())

	return err
}

// unsubscribeAll must be called with r.mu held.
func (r *Responder) unsubscribeAll() {
	for _, sub := range r.subs {
		if err := sub.Unsubscribe(); err != nil {
			r.logger.Debug("Unsubscribe failed", "subject", sub.Subject, "error", err)
		}
	}
	r.subs = nil
}

// Stats returns the number of handled requests and how many produced errors.
func (r *Responder) Stats() (handled, errored int64) {
	return r.handled.Load(), r.errors.Load()
}

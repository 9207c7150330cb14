package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cardlift/cardlift/internal/logging"
)

// Status is the lifecycle state of a Session.
type Status string

// Session states. A session starts idle, uploads, and lands in exactly one
// terminal state; terminal states only return to idle via Reset.
const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Terminal reports whether the status is one of the three end states.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusError
}

// Session precondition errors.
var (
	ErrNilTransport  = errors.New("transport cannot be nil")
	ErrSessionActive = errors.New("session is uploading")
)

// Transport submits one batch as a single network exchange. Modeled results,
// including failures and aborts, come back inside the Outcome; the error
// return is reserved for failures outside the modeled outcome space (e.g. a
// malformed response body) and terminates the whole session.
//
// Implementations must not retry internally and must honor ctx cancellation
// by returning an Outcome with Kind OutcomeAborted.
type Transport interface {
	SendBatch(ctx context.Context, batch Batch) (Outcome, error)
}

// Result is the structured outcome of one Start or RetryFailed call.
type Result struct {
	Success         bool     `json:"success"`
	Cancelled       bool     `json:"cancelled,omitempty"`
	Message         string   `json:"message,omitempty"`
	TotalCreated    int      `json:"totalCreated"`
	Accepted        []Record `json:"accepted"`
	Warnings        []Record `json:"warnings"`
	BlockedOrErrors []Record `json:"blockedOrErrors"`
}

// Option configures a Session.
type Option func(*Session)

// WithBatchSize sets how many items are submitted per exchange.
func WithBatchSize(n int) Option {
	return func(s *Session) { s.batchSize = n }
}

// WithObserver registers the observer receiving classification events.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRateLimit paces batch submission to at most batchesPerSecond exchanges
// per second. Zero or negative disables pacing.
func WithRateLimit(batchesPerSecond float64) Option {
	return func(s *Session) {
		if batchesPerSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(batchesPerSecond), 1)
		}
	}
}

// Session orchestrates one upload at a time: chunk, send, classify, merge,
// advance progress, check cancellation, repeat. Batches are processed
// strictly sequentially with a single exchange in flight.
//
// The result collections are owned by the session and only mutated from
// within the upload loop; accessors hand out copies.
type Session struct {
	id        string
	transport Transport
	batchSize int
	observer  Observer
	limiter   *rate.Limiter

	mu              sync.Mutex
	status          Status
	progress        *Progress
	accepted        []Record
	warnings        []Record
	blockedOrErrors []Record
	cancelRun       context.CancelFunc

	cancelled atomic.Bool
}

// NewSession creates an idle session over the given transport.
func NewSession(transport Transport, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	s := &Session{
		id:        ulid.Make().String(),
		transport: transport,
		batchSize: DefaultBatchSize,
		observer:  NopObserver,
		status:    StatusIdle,
		progress:  NewProgress(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.batchSize < MinBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, s.batchSize)
	}
	return s, nil
}

// ID returns the session's ULID, used for log correlation.
func (s *Session) ID() string { return s.id }

// Start uploads items in batches. It returns ErrNoItems for an empty input
// and ErrSessionActive when an upload is already running; every other
// outcome, including cancellation and a session-terminating failure, is
// reported through the Result rather than the error return.
func (s *Session) Start(ctx context.Context, items []Item) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	batches, err := Chunk(items, s.batchSize)
	if err != nil {
		return nil, err
	}

	runCtx, cancel, err := s.begin(ctx, len(items))
	if err != nil {
		return nil, err
	}
	defer cancel()

	logger := logging.FromContext(ctx).With().
		Str("component", "session").
		Str("session_id", s.id).
		Logger()
	logger.Info().
		Int("items", len(items)).
		Int("batches", len(batches)).
		Int("batch_size", s.batchSize).
		Msg("upload started")

	for _, batch := range batches {
		// Cheap stop between batches; the in-flight exchange is covered by
		// runCtx inside SendBatch.
		if s.runCancelled(runCtx) {
			return s.finishCancelled(&logger), nil
		}

		if s.limiter != nil {
			if waitErr := s.limiter.Wait(runCtx); waitErr != nil {
				return s.finishCancelled(&logger), nil
			}
		}

		outcome, sendErr := s.transport.SendBatch(runCtx, batch)
		if sendErr != nil {
			return s.finishFailed(&logger, sendErr), nil
		}
		if outcome.Kind == OutcomeAborted {
			return s.finishCancelled(&logger), nil
		}

		records := Classify(batch, outcome)
		s.merge(records)
		s.observer.BatchComplete(batch.Index, len(batches), outcome)

		logger.Debug().
			Int("batch", batch.Index+1).
			Int("of", len(batches)).
			Str("outcome", outcome.Kind.String()).
			Int("records", len(records)).
			Msg("batch resolved")
	}

	return s.finishComplete(&logger), nil
}

// RetryFailed re-submits exactly the items whose current record is an error.
// Confirmed duplicates (blocked records) are never retried. The retried ids
// are removed from the session before re-entering the upload flow; when no
// item qualifies, the session is left untouched and a "nothing to retry"
// success is returned.
func (s *Session) RetryFailed(ctx context.Context, items []Item) (*Result, error) {
	s.mu.Lock()
	if s.status == StatusUploading {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}

	failedIDs := make(map[string]bool, len(s.blockedOrErrors))
	for _, rec := range s.blockedOrErrors {
		if rec.Bucket == BucketError && rec.ItemID != "" {
			failedIDs[rec.ItemID] = true
		}
	}

	retry := make([]Item, 0, len(failedIDs))
	retryIDs := make(map[string]bool, len(failedIDs))
	for _, it := range items {
		if failedIDs[it.ID] {
			retry = append(retry, it)
			retryIDs[it.ID] = true
		}
	}

	if len(retry) == 0 {
		s.mu.Unlock()
		return &Result{Success: true, Message: "nothing to retry"}, nil
	}

	kept := s.blockedOrErrors[:0]
	for _, rec := range s.blockedOrErrors {
		if !retryIDs[rec.ItemID] {
			kept = append(kept, rec)
		}
	}
	s.blockedOrErrors = kept
	s.mu.Unlock()

	logging.FromContext(ctx).Info().
		Str("component", "session").
		Str("session_id", s.id).
		Int("retrying", len(retry)).
		Msg("retrying failed items")

	return s.Start(ctx, retry)
}

// Cancel trips the cancellation signal. It has no effect unless the session
// is uploading; the loop observes it before the next batch and the in-flight
// exchange is interrupted through its context.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusUploading {
		return
	}
	s.cancelled.Store(true)
	if s.cancelRun != nil {
		s.cancelRun()
	}
}

// Reset returns a terminal (or idle) session to idle with empty collections
// and zeroed progress. It fails with ErrSessionActive while uploading.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusUploading {
		return ErrSessionActive
	}

	s.status = StatusIdle
	s.accepted = nil
	s.warnings = nil
	s.blockedOrErrors = nil
	s.progress.Reset()
	s.cancelled.Store(false)
	return nil
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns a snapshot of the session's progress.
func (s *Session) Progress() ProgressState {
	return s.progress.Snapshot()
}

// Elapsed returns the running time of the current or last run.
func (s *Session) Elapsed() time.Duration {
	return s.progress.Elapsed()
}

// ItemsPerSecond returns the processing rate of the current or last run.
func (s *Session) ItemsPerSecond() float64 {
	return s.progress.ItemsPerSecond()
}

// Accepted returns a copy of the accepted records.
func (s *Session) Accepted() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.accepted...)
}

// Warnings returns a copy of the warning records.
func (s *Session) Warnings() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.warnings...)
}

// BlockedOrErrors returns a copy of the blocked and error records.
func (s *Session) BlockedOrErrors() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.blockedOrErrors...)
}

// begin transitions the session into the uploading state, zeroing progress
// and result collections, and derives the cancellable run context.
func (s *Session) begin(ctx context.Context, total int) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusUploading {
		return nil, nil, ErrSessionActive
	}

	s.status = StatusUploading
	s.accepted = nil
	s.warnings = nil
	s.blockedOrErrors = nil
	s.progress.Begin(total)
	s.cancelled.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	return runCtx, cancel, nil
}

func (s *Session) runCancelled(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

// merge folds classified records into the session collections, advancing
// progress and notifying the observer once per item.
func (s *Session) merge(records []Record) {
	for _, rec := range records {
		s.mu.Lock()
		switch rec.Bucket {
		case BucketAccepted:
			s.accepted = append(s.accepted, rec)
		case BucketWarning:
			s.warnings = append(s.warnings, rec)
		case BucketBlocked, BucketError:
			s.blockedOrErrors = append(s.blockedOrErrors, rec)
		}
		s.progress.Advance(1)
		s.mu.Unlock()

		// Outside the lock: observers may read session snapshots.
		s.observer.ItemClassified(rec)
	}
}

func (s *Session) finishComplete(logger *zerolog.Logger) *Result {
	s.mu.Lock()
	s.status = StatusComplete
	s.progress.Complete()
	res := s.resultLocked()
	res.Success = true
	res.TotalCreated = len(s.accepted)
	s.mu.Unlock()

	logger.Info().
		Int("accepted", len(res.Accepted)).
		Int("warnings", len(res.Warnings)).
		Int("blocked_or_errors", len(res.BlockedOrErrors)).
		Msg("upload complete")
	return res
}

func (s *Session) finishCancelled(logger *zerolog.Logger) *Result {
	s.mu.Lock()
	s.status = StatusCancelled
	res := s.resultLocked()
	res.Cancelled = true
	res.Message = "upload cancelled"
	s.mu.Unlock()

	logger.Info().
		Int("processed", s.progress.Snapshot().Processed).
		Msg("upload cancelled")
	return res
}

// finishFailed handles a failure outside the modeled outcome space: the whole
// session lands in the error state with a single synthetic error record and
// remaining batches are not attempted.
func (s *Session) finishFailed(logger *zerolog.Logger, err error) *Result {
	rec := Record{
		Bucket:  BucketError,
		Message: fmt.Sprintf("upload failed: %v", err),
	}

	s.mu.Lock()
	s.status = StatusError
	s.blockedOrErrors = append(s.blockedOrErrors, rec)
	res := s.resultLocked()
	res.Message = rec.Message
	s.mu.Unlock()

	logger.Error().Err(err).Msg("upload failed")
	return res
}

// resultLocked snapshots the collections into a Result. Callers hold s.mu.
func (s *Session) resultLocked() *Result {
	return &Result{
		Accepted:        append([]Record(nil), s.accepted...),
		Warnings:        append([]Record(nil), s.warnings...),
		BlockedOrErrors: append([]Record(nil), s.blockedOrErrors...),
	}
}

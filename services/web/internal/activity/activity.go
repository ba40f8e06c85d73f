package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

const (
	// StreamName is the JetStream stream holding activity events.
	StreamName = "VOLUNTEERVERSE"
	// SubjectPrefix prefixes every activity subject.
	SubjectPrefix = "volunteerverse.activity."
	// StreamMaxAge bounds how long undelivered events are retained.
	StreamMaxAge = 7 * 24 * time.Hour

	durableName = "audit-writer"
)

// Actions recorded by the application.
const (
	AccountRegistered        = "account.registered"
	SessionLogin             = "session.login"
	SessionLogout            = "session.logout"
	UserApproved             = "user.approved"
	UserRejected             = "user.rejected"
	UserDeleted              = "user.deleted"
	NGOCreated               = "ngo.created"
	NGODeleted               = "ngo.deleted"
	EventCreated             = "event.created"
	EventUpdated             = "event.updated"
	EventDeleted             = "event.deleted"
	ApplicationCreated       = "application.created"
	ApplicationStatusChanged = "application.status_changed"
	HoursLogged              = "hours.logged"
	HoursVerified            = "hours.verified"
)

// Subjects returns the subject filter covering every action.
func Subjects() []string {
	return []string{SubjectPrefix + ">"}
}

// Event is the envelope published for every recorded action.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// MessageID deduplicates retried publishes of e.
func (e Event) MessageID() string {
	if e.ID == uuid.Nil {
		return ""
	}
	return e.ID.String()
}

// Subject is the bus subject for e.
func (e Event) Subject() string {
	return SubjectPrefix + e.Action
}

func (e Event) auditLog() (*models.AuditLog, error) {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	entry := &models.AuditLog{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		Metadata:   datatypes.JSON(raw),
		CreatedAt:  e.OccurredAt,
	}
	if e.TargetID != "" {
		target := e.TargetID
		entry.TargetID = &target
	}
	return entry, nil
}

// Publisher publishes JSON payloads to a subject.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Subscriber creates durable subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

// AuditWriter persists audit rows.
type AuditWriter interface {
	InsertAudit(ctx context.Context, entry *models.AuditLog) error
}

// Recorder records actions either through the bus or directly into the audit log.
type Recorder struct {
	pub    Publisher
	audit  AuditWriter
	logger zerolog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder. pub may be nil, in which case events are
// written to audit inline.
func NewRecorder(pub Publisher, audit AuditWriter, logger zerolog.Logger) (*Recorder, error) {
	if pub == nil && audit == nil {
		return nil, errors.New("publisher or audit writer is required")
	}
	return &Recorder{pub: pub, audit: audit, logger: logger, now: time.Now}, nil
}

// Record stamps e and hands it to the bus or the audit log.
func (r *Recorder) Record(ctx context.Context, e Event) error {
	if r == nil {
		return nil
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("action is required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}

	if r.pub != nil {
		if err := r.pub.Publish(ctx, e.Subject(), e); err != nil {
			return fmt.Errorf("publish %s: %w", e.Action, err)
		}
		return nil
	}

	entry, err := e.auditLog()
	if err != nil {
		return err
	}
	return r.audit.InsertAudit(ctx, entry)
}

// Log records e and logs, rather than returns, any failure. Request handlers
// use it so auditing never fails the request.
func (r *Recorder) Log(ctx context.Context, e Event) {
	if err := r.Record(ctx, e); err != nil {
		r.logger.Warn().Err(err).Str("action", e.Action).Msg("record activity")
	}
}

// Ingestor consumes activity events from the bus into the audit log.
type Ingestor struct {
	sub    Subscriber
	audit  AuditWriter
	logger zerolog.Logger

	subMu  sync.Mutex
	closer io.Closer
}

// NewIngestor constructs an Ingestor for the provided dependencies.
func NewIngestor(sub Subscriber, audit AuditWriter, logger zerolog.Logger) (*Ingestor, error) {
	if sub == nil {
		return nil, errors.New("subscriber is required")
	}
	if audit == nil {
		return nil, errors.New("audit writer is required")
	}
	return &Ingestor{sub: sub, audit: audit, logger: logger}, nil
}

// Start subscribes to activity events and processes them until ctx is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	if i == nil {
		return errors.New("nil ingestor")
	}

	closer, err := i.sub.Subscribe(ctx, SubjectPrefix+">", durableName, i.handle)
	if err != nil {
		return err
	}

	i.subMu.Lock()
	i.closer = closer
	i.subMu.Unlock()
	return nil
}

// Close stops the underlying subscription if it was created.
func (i *Ingestor) Close() error {
	if i == nil {
		return nil
	}

	i.subMu.Lock()
	defer i.subMu.Unlock()

	if i.closer == nil {
		return nil
	}
	err := i.closer.Close()
	i.closer = nil
	return err
}

func (i *Ingestor) handle(ctx context.Context, data []byte) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		// A malformed payload will never decode; drop it instead of redelivering.
		i.logger.Error().Err(err).Msg("discarding malformed activity event")
		return nil
	}
	if e.Action == "" {
		i.logger.Error().Str("id", e.ID.String()).Msg("discarding activity event without action")
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	entry, err := e.auditLog()
	if err != nil {
		return err
	}
	if err := i.audit.InsertAudit(ctx, entry); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		i.logger.Warn().Err(err).Str("action", e.Action).Msg("write audit log")
		return err
	}
	return nil
}

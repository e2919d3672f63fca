// Package audit records an append-only trail of chat turns and admin
// mutations. Events are immutable once written.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/demoplane/demoplane/pkg/uuid"
)

// ActorType represents the type of actor performing an action
type ActorType string

const (
	ActorTypeVisitor ActorType = "visitor"
	ActorTypeAdmin   ActorType = "admin"
	ActorTypeSystem  ActorType = "system"
)

// Outcome represents the result of an audited action
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeBlocked Outcome = "blocked"
	OutcomeError   Outcome = "error"
)

// Event is a single audit log entry.
type Event struct {
	ID         string          `json:"id"`
	Actor      string          `json:"actor"`
	ActorType  ActorType       `json:"actor_type"`
	Action     string          `json:"action"`
	EntityType *string         `json:"entity_type,omitempty"`
	EntityID   *string         `json:"entity_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LogInput describes an event to append.
type LogInput struct {
	Actor      string
	ActorType  ActorType
	Action     string
	EntityType *string
	EntityID   *string
	Details    any
	Outcome    Outcome
}

// Service appends and lists audit events.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Log appends one event. Details is marshaled to JSON; nil becomes {}.
func (s *Service) Log(ctx context.Context, in LogInput) (*Event, error) {
	if in.Actor == "" || in.Action == "" {
		return nil, fmt.Errorf("audit: actor and action are required")
	}

	details := json.RawMessage(`{}`)
	if in.Details != nil {
		raw, err := json.Marshal(in.Details)
		if err != nil {
			return nil, fmt.Errorf("audit: marshal details: %w", err)
		}
		details = raw
	}

	evt := &Event{
		ID:         uuid.NewV7().String(),
		Actor:      in.Actor,
		ActorType:  in.ActorType,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Details:    details,
		Outcome:    in.Outcome,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_event (id, actor, actor_type, action, entity_type, entity_id, details, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.ID, evt.Actor, string(evt.ActorType), evt.Action, evt.EntityType, evt.EntityID, string(evt.Details), string(evt.Outcome), evt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("audit: insert event: %w", err)
	}
	return evt, nil
}

// List returns the most recent events, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, actor_type, action, entity_type, entity_id, details, outcome, created_at
		FROM audit_event
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Event, 0, limit)
	for rows.Next() {
		var (
			evt        Event
			entityType sql.NullString
			entityID   sql.NullString
			detailsRaw string
			actorType  string
			outcome    string
		)
		if err := rows.Scan(&evt.ID, &evt.Actor, &actorType, &evt.Action, &entityType, &entityID, &detailsRaw, &outcome, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.ActorType = ActorType(actorType)
		evt.Outcome = Outcome(outcome)
		evt.Details = json.RawMessage(detailsRaw)
		if entityType.Valid {
			v := entityType.String
			evt.EntityType = &v
		}
		if entityID.Valid {
			v := entityID.String
			evt.EntityID = &v
		}
		out = append(out, &evt)
	}
	return out, rows.Err()
}

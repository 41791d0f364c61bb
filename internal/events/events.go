// Package events broadcasts submission status transitions over NATS so
// frontends can push live updates instead of polling the store. Events are
// fire and forget; a missed event only delays the UI until its next poll.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/programme-lv/judge/internal/subm"
)

const defaultSubject = "judge.submissions"

type StatusEvent struct {
	EventID      string      `json:"event_id"`
	SubmissionID int64       `json:"submission_id"`
	Status       subm.Status `json:"status"`
	At           time.Time   `json:"at"`
}

// Publisher emits status events. A nil Publisher is valid and publishes
// nothing, so callers never guard their publish calls.
type Publisher struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

func NewPublisher(url, subject string, log *slog.Logger) (*Publisher, error) {
	if subject == "" {
		subject = defaultSubject
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn, subject: subject, log: log}, nil
}

func (p *Publisher) Publish(submissionID int64, status subm.Status) {
	if p == nil {
		return
	}
	event := StatusEvent{
		EventID:      uuid.NewString(),
		SubmissionID: submissionID,
		Status:       status,
		At:           time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal status event", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.log.Warn("publish status event", "submission", submissionID, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}

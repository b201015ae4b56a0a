// Package outreach sends messages to resolved contacts and records
// every attempt against the building's outreach log.
package outreach

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/store"
)

// Sender delivers one outbound message. Implementations wrap a mail
// provider; delivery failures are reported, never retried here.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DryRunSender logs the message instead of delivering it. The default
// until a real provider is configured, so a batch run never emails
// anyone by accident.
type DryRunSender struct{}

func (DryRunSender) Send(_ context.Context, to, subject, _ string) error {
	zap.L().Info("dry-run send",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// Service sends outreach for approved records and logs each attempt.
type Service struct {
	store  store.Store
	sender Sender
}

// NewService creates an outreach Service.
func NewService(st store.Store, sender Sender) *Service {
	if sender == nil {
		sender = DryRunSender{}
	}
	return &Service{store: st, sender: sender}
}

// Send delivers a message to a record's resolved contact and records
// the attempt. Unapproved records and records without a contact email
// are refused.
func (s *Service) Send(ctx context.Context, recordID, subject, body string) (*model.OutreachLog, error) {
	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.Approved {
		return nil, eris.Errorf("outreach: record %s is not approved", recordID)
	}
	if rec.Contact == nil || rec.Contact.Email == "" {
		return nil, eris.Errorf("outreach: record %s has no contact email", recordID)
	}

	status := "sent"
	if err := s.sender.Send(ctx, rec.Contact.Email, subject, body); err != nil {
		status = "failed"
		zap.L().Error("outreach send failed",
			zap.String("record_id", recordID),
			zap.Error(err))
	}
	return s.store.LogOutreach(ctx, recordID, subject, body, status)
}

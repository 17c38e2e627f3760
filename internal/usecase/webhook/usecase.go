package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"user-auth-service/internal/adapter/cache"
	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
	"user-auth-service/pkg/security"
)

// Delivery outcomes reported to the provider.
const (
	StatusOK        = "ok"
	StatusDuplicate = "duplicate"
)

// ErrBadSignature is returned when the payload signature does not verify.
var ErrBadSignature = pkgerrors.NewUnauthenticatedError("invalid signature")

// Result is the acknowledgement returned for an accepted delivery.
type Result struct {
	Status  string `json:"status"`
	EventID string `json:"event_id,omitempty"`
}

// Usecase verifies and de-duplicates provider webhooks.
type Usecase struct {
	secret []byte
	ledger cache.EventLedger
	log    *zap.Logger
}

// New creates a webhook Usecase.
func New(secret string, ledger cache.EventLedger, log *zap.Logger) *Usecase {
	return &Usecase{secret: []byte(secret), ledger: ledger, log: log}
}

// Handle checks the HMAC signature over the raw body, extracts the event id and
// records it. Redeliveries of a known id are acknowledged as duplicates.
func (uc *Usecase) Handle(ctx context.Context, body []byte, signature string) (*Result, error) {
	log := logger.WithContext(ctx, uc.log)

	if !security.VerifySignature(uc.secret, body, strings.TrimSpace(signature)) {
		log.Warn("webhook signature rejected")
		return nil, ErrBadSignature
	}

	id, err := eventID(body)
	if err != nil {
		return nil, err
	}

	first, err := uc.ledger.MarkProcessed(ctx, id)
	if err != nil {
		log.Error("failed to record webhook event", zap.String("event_id", id), zap.Error(err))
		return nil, pkgerrors.NewUnavailableError("event ledger unavailable", err)
	}
	if !first {
		log.Info("duplicate webhook event", zap.String("event_id", id))
		return &Result{Status: StatusDuplicate, EventID: id}, nil
	}

	log.Info("webhook event accepted", zap.String("event_id", id))
	return &Result{Status: StatusOK, EventID: id}, nil
}

// eventID accepts a string or numeric "id" field.
func eventID(body []byte) (string, error) {
	var payload struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", pkgerrors.NewValidationError("body", "must be a JSON object")
	}

	raw := bytes.TrimSpace(payload.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", pkgerrors.NewValidationError("id", "is required")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return "", pkgerrors.NewValidationError("id", "is required")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", pkgerrors.NewValidationError("id", "must be a string or number")
}

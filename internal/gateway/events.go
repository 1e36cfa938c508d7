package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"fotolio/internal/models/db_models"
)

// SessionMeta is the opaque metadata attached to every checkout session so
// gateway events can be tied back to the local transaction without lookups
// against gateway state.
type SessionMeta struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	Type          db_models.TransactionType
	GalleryID     *uuid.UUID
	WalletMinor   int64
	GatewayMinor  int64
	ReferrerID    *uuid.UUID
}

func (m SessionMeta) Encode() map[string]string {
	out := map[string]string{
		"user_id":        m.UserID.String(),
		"transaction_id": m.TransactionID.String(),
		"type":           string(m.Type),
		"wallet_minor":   strconv.FormatInt(m.WalletMinor, 10),
		"gateway_minor":  strconv.FormatInt(m.GatewayMinor, 10),
	}
	if m.GalleryID != nil {
		out["gallery_id"] = m.GalleryID.String()
	}
	if m.ReferrerID != nil {
		out["referrer_id"] = m.ReferrerID.String()
	}
	return out
}

func ParseSessionMeta(raw map[string]string) (SessionMeta, error) {
	var meta SessionMeta
	userID, err := uuid.Parse(raw["user_id"])
	if err != nil {
		return meta, fmt.Errorf("session metadata user_id: %w", err)
	}
	txnID, err := uuid.Parse(raw["transaction_id"])
	if err != nil {
		return meta, fmt.Errorf("session metadata transaction_id: %w", err)
	}
	meta.UserID = userID
	meta.TransactionID = txnID
	meta.Type = db_models.TransactionType(raw["type"])
	meta.WalletMinor, _ = strconv.ParseInt(raw["wallet_minor"], 10, 64)
	meta.GatewayMinor, _ = strconv.ParseInt(raw["gateway_minor"], 10, 64)
	if v, ok := raw["gallery_id"]; ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			meta.GalleryID = &id
		}
	}
	if v, ok := raw["referrer_id"]; ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			meta.ReferrerID = &id
		}
	}
	return meta, nil
}

// Event is the decoded gateway event, one concrete type per kind. Payloads
// are decoded once at the boundary and consumed as typed values after.
type Event interface {
	EventName() string
}

type CheckoutCompleted struct {
	PaymentID   string // dedup key for the reconciler
	SessionID   string
	AmountMinor int64
	Meta        SessionMeta
}

type CheckoutExpired struct {
	SessionID string
	Meta      SessionMeta
}

type PaymentFailed struct {
	PaymentID string
	Meta      SessionMeta
}

type PaymentCanceled struct {
	PaymentID string
	Meta      SessionMeta
}

// Unknown is acknowledged and ignored for forward compatibility.
type Unknown struct {
	Type string
}

func (CheckoutCompleted) EventName() string { return "checkout_completed" }
func (CheckoutExpired) EventName() string   { return "checkout_expired" }
func (PaymentFailed) EventName() string     { return "payment_failed" }
func (PaymentCanceled) EventName() string   { return "payment_canceled" }
func (u Unknown) EventName() string         { return "unknown:" + u.Type }

// DecodeStripeEvent maps a verified Stripe event onto the typed union.
func DecodeStripeEvent(event stripe.Event) (Event, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		meta, err := ParseSessionMeta(session.Metadata)
		if err != nil {
			return nil, err
		}
		return CheckoutCompleted{
			PaymentID:   session.ID,
			SessionID:   session.ID,
			AmountMinor: session.AmountTotal,
			Meta:        meta,
		}, nil
	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		meta, err := ParseSessionMeta(session.Metadata)
		if err != nil {
			return nil, err
		}
		return CheckoutExpired{SessionID: session.ID, Meta: meta}, nil
	case "payment_intent.payment_failed", "payment_intent.canceled":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		meta, err := ParseSessionMeta(intent.Metadata)
		if err != nil {
			return nil, err
		}
		if string(event.Type) == "payment_intent.canceled" {
			return PaymentCanceled{PaymentID: intent.ID, Meta: meta}, nil
		}
		return PaymentFailed{PaymentID: intent.ID, Meta: meta}, nil
	default:
		return Unknown{Type: string(event.Type)}, nil
	}
}

// DecodeRelayPayload decodes a relayed event-bus delivery. The relay may
// batch several gateway events into a single message body.
func DecodeRelayPayload(body []byte) ([]Event, error) {
	var batch []stripe.Event
	if err := json.Unmarshal(body, &batch); err == nil {
		events := make([]Event, 0, len(batch))
		for _, raw := range batch {
			event, err := DecodeStripeEvent(raw)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
		return events, nil
	}

	var single stripe.Event
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decode relayed event: %w", err)
	}
	event, err := DecodeStripeEvent(single)
	if err != nil {
		return nil, err
	}
	return []Event{event}, nil
}

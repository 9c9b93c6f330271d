package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects published by the auth core. Downstream consumers (analytics,
// notification fan-out) subscribe to these.
const (
	UserSignedUp        = "user.signed_up"
	UserPasswordChanged = "user.password_changed"
	UserDeactivated     = "user.deactivated"
)

type UserSignedUpEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPasswordChangedEvent marks the instant before which all session
// tokens for the user stop verifying.
type UserPasswordChangedEvent struct {
	UserID    int64     `json:"user_id"`
	ChangedAt time.Time `json:"changed_at"`
	ViaReset  bool      `json:"via_reset"`
}

type UserDeactivatedEvent struct {
	UserID        int64     `json:"user_id"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

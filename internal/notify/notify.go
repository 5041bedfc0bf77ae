package notify

import (
	"context"
	"errors"

	"warungpos/internal/domain"
)

// ErrSubscriptionGone marks an endpoint the push service no longer
// recognizes. Callers should drop the stored subscription.
var ErrSubscriptionGone = errors.New("push subscription gone")

type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Sender delivers one message to one push subscription. Delivery is
// best effort; failures must never abort the business operation that
// triggered them.
type Sender interface {
	Send(ctx context.Context, sub domain.PushSubscription, msg Message) error
}

type NoopSender struct{}

func (NoopSender) Send(_ context.Context, _ domain.PushSubscription, _ Message) error {
	return nil
}

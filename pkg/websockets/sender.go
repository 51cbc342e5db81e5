package websockets

import (
	"context"
	"time"

	"github.com/chris/library-ledger/pkg/notify"
)

// Sender forwards notifications to staff dashboards.
type Sender struct {
	Publisher Publisher
	now       func() time.Time
}

func NewSender(p Publisher) *Sender {
	return &Sender{Publisher: p, now: time.Now}
}

var _ notify.Sender = (*Sender)(nil)

func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	return s.Publisher.Publish(ctx, Message{
		Type: MessageTypeNotification,
		Payload: NotificationPayload{
			To:      msg.To,
			Subject: msg.Subject,
			Body:    msg.Body,
			SentAt:  s.now().UTC(),
		},
	})
}

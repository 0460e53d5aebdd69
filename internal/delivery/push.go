package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kotche/notes/internal/model"
)

const ChannelPush = "push"

// PushChannel delivers through the user's service worker, so the note shows
// up even when no page is open.
type PushChannel struct {
	reg *Registration
}

func NewPushChannel(reg *Registration) *PushChannel {
	return &PushChannel{reg: reg}
}

func (p *PushChannel) Name() string { return ChannelPush }

func (p *PushChannel) Ready(settings *model.UserSettings) bool {
	return settings.PushSubscription != nil && settings.PushSubscription.Valid() && p.reg.Available()
}

func (p *PushChannel) Deliver(ctx context.Context, settings *model.UserSettings, n Notification) error {
	if settings.PushSubscription == nil {
		return model.ErrSubscriptionNotFound
	}
	payload, err := n.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return p.Send(ctx, *settings.PushSubscription, payload)
}

// Send pushes a raw payload to one subscription.
func (p *PushChannel) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	opts, err := p.reg.Acquire()
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &opts)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return model.ErrSubscriptionGone
	case resp.StatusCode >= http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service responded %d: %s", resp.StatusCode, body)
	}
	return nil
}

package delivery

import (
	"fmt"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/model"
)

// Registration owns the VAPID identity the push channel signs with. It is
// built on first use and reused for the life of the process; a failed
// acquisition is not retried.
type Registration struct {
	cfg    config.WebPushConfig
	client webpush.HTTPClient

	once sync.Once
	opts webpush.Options
	err  error
}

// NewRegistration accepts a nil client, in which case webpush uses its own.
func NewRegistration(cfg config.WebPushConfig, client webpush.HTTPClient) *Registration {
	return &Registration{cfg: cfg, client: client}
}

// Acquire returns a copy of the signing options, safe to adjust per message.
func (r *Registration) Acquire() (webpush.Options, error) {
	r.once.Do(func() {
		if r.cfg.VAPIDPublicKey == "" || r.cfg.VAPIDPrivateKey == "" {
			r.err = fmt.Errorf("vapid keys are not configured: %w", model.ErrCapabilityMissing)
			return
		}
		r.opts = webpush.Options{
			Subscriber:      r.cfg.Subscriber,
			VAPIDPublicKey:  r.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: r.cfg.VAPIDPrivateKey,
			TTL:             r.cfg.TTL,
			Urgency:         webpush.UrgencyHigh,
			HTTPClient:      r.client,
		}
	})
	return r.opts, r.err
}

// PublicKey is handed to clients as the applicationServerKey.
func (r *Registration) PublicKey() string {
	return r.cfg.VAPIDPublicKey
}

// Available reports whether push messages can be signed at all.
func (r *Registration) Available() bool {
	_, err := r.Acquire()
	return err == nil
}

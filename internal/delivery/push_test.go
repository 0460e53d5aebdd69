package delivery

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/model"
)

func testSubscription(t *testing.T, endpoint string) model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return model.PushSubscription{
		Endpoint: endpoint,
		Keys: model.PushKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}

func testRegistration(t *testing.T) *Registration {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return NewRegistration(config.WebPushConfig{
		Subscriber:      "mailto:test@example.com",
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		TTL:             30,
	}, nil)
}

func TestPushChannel_Deliver(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "vapid "))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sub := testSubscription(t, srv.URL)
	ch := NewPushChannel(testRegistration(t))
	settings := &model.UserSettings{NotificationsEnabled: true, PushSubscription: &sub}

	require.True(t, ch.Ready(settings))
	require.NoError(t, ch.Deliver(context.Background(), settings, FromNote(note())))
	assert.Equal(t, int32(1), hits.Load())
}

func TestPushChannel_GoneSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	sub := testSubscription(t, srv.URL)
	ch := NewPushChannel(testRegistration(t))

	err := ch.Send(context.Background(), sub, []byte(`{"title":"x"}`))
	assert.ErrorIs(t, err, model.ErrSubscriptionGone)
}

func TestRegistration_MissingKeysIsCapabilityMissing(t *testing.T) {
	reg := NewRegistration(config.WebPushConfig{}, nil)

	_, err := reg.Acquire()
	assert.ErrorIs(t, err, model.ErrCapabilityMissing)
	assert.False(t, reg.Available())

	sub := testSubscription(t, "https://push.example")
	assert.False(t, NewPushChannel(reg).Ready(&model.UserSettings{PushSubscription: &sub}))
}

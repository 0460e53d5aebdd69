package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kotche/notes/infrastructure/metrics"
	"github.com/kotche/notes/internal/auth"
	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/service/link"
	"github.com/kotche/notes/internal/service/notes"
	"github.com/kotche/notes/internal/service/settings"
)

type (
	// PushSender sends a raw payload to one push subscription.
	PushSender interface {
		Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
	}

	Deps struct {
		Notes    notes.Service
		Settings settings.Service
		Links    link.Service
		Push     PushSender
		Verifier *auth.Verifier
		Log      *zap.Logger

		VAPIDPublicKey string
		LinkTTL        time.Duration
		Manifest       config.ManifestConfig
	}
)

type API struct {
	notes    notes.Service
	settings settings.Service
	links    link.Service
	push     PushSender
	verifier *auth.Verifier
	log      *zap.Logger

	vapidKey string
	linkTTL  time.Duration
	manifest config.ManifestConfig
	now      func() time.Time
}

func New(d Deps) *API {
	return &API{
		notes:    d.Notes,
		settings: d.Settings,
		links:    d.Links,
		push:     d.Push,
		verifier: d.Verifier,
		log:      d.Log,
		vapidKey: d.VAPIDPublicKey,
		linkTTL:  d.LinkTTL,
		manifest: d.Manifest,
		now:      time.Now,
	}
}

// Engine builds the router. The push functions keep their own bearer check
// because their request body names the user the token must match.
func (a *API) Engine() *gin.Engine {
	r := gin.New()
	r.Use(a.corsMiddleware(), metrics.Middleware(), a.accessLog(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/manifest.webmanifest", a.getManifest)

	functions := r.Group("/functions/v1")
	functions.POST("/send-push-notification", a.wrap(a.sendPushNotification))
	functions.POST("/send-notification", a.wrap(a.sendNotification))

	v1 := r.Group("/api/v1", auth.Middleware(a.verifier, a.log))
	v1.GET("/auth/me", a.wrap(a.me))

	v1.GET("/notes", a.wrap(a.listNotes))
	v1.POST("/notes", a.wrap(a.createNote))
	v1.GET("/notes/:id", a.wrap(a.getNote))
	v1.DELETE("/notes/:id", a.wrap(a.deleteNote))

	v1.GET("/profile", a.wrap(a.getProfile))
	v1.PUT("/profile", a.wrap(a.updateProfile))

	v1.GET("/settings", a.wrap(a.getSettings))
	v1.PUT("/settings/notifications", a.wrap(a.setNotifications))

	v1.GET("/push/key", a.wrap(a.pushKey))
	v1.GET("/push/guidance", a.wrap(a.pushGuidance))
	v1.POST("/push/subscription", a.wrap(a.subscribe))
	v1.DELETE("/push/subscription", a.wrap(a.unsubscribe))

	v1.POST("/telegram/link", a.wrap(a.issueTelegramLink))

	return r
}

func (a *API) corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:          12 * time.Hour,
	})
}

func (a *API) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

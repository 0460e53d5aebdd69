package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/delivery"
	"github.com/kotche/notes/internal/model"
)

type (
	sendPushRequest struct {
		Subscription     model.PushSubscription `json:"subscription"`
		Content          string                 `json:"content"`
		UserID           string                 `json:"userId"`
		NotificationTime *time.Time             `json:"notificationTime"`
	}

	sendRawRequest struct {
		Subscription model.PushSubscription `json:"subscription"`
		Message      json.RawMessage        `json:"message"`
	}
)

// sendPushNotification delivers a reminder for the calling user right away.
// A notification time in the future is acknowledged and left to the
// scheduler.
func (a *API) sendPushNotification(c *gin.Context) error {
	identity, err := a.verifier.ParseHeader(c.GetHeader("Authorization"))
	if err != nil {
		return unauthorized(c)
	}

	var req sendPushRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return pushFailure(err)
	}
	if req.UserID != identity.UserID.String() {
		a.log.Debug("push function called for another user", zap.Stringer("user_id", identity.UserID))
		return unauthorized(c)
	}

	if req.NotificationTime != nil && req.NotificationTime.After(a.now()) {
		c.JSON(http.StatusOK, gin.H{"message": "Notification scheduled"})
		return nil
	}

	payload, err := json.Marshal(delivery.Notification{
		Title: delivery.DefaultTitle,
		Body:  req.Content,
		Icon:  delivery.DefaultIcon,
		Data:  delivery.Data{URL: delivery.DefaultURL},
	})
	if err != nil {
		return pushFailure(err)
	}

	if err = a.push.Send(c.Request.Context(), req.Subscription, payload); err != nil {
		a.log.Warn("push function delivery failed", zap.Stringer("user_id", identity.UserID), zap.Error(err))
		return pushFailure(err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
	return nil
}

// unauthorized answers in plain text, which is what function callers expect.
func unauthorized(c *gin.Context) error {
	c.String(http.StatusUnauthorized, "Unauthorized")
	return nil
}

// sendNotification pushes the caller-supplied message as is. A JSON string
// is sent unquoted, anything else as its JSON text.
func (a *API) sendNotification(c *gin.Context) error {
	if _, err := a.verifier.ParseHeader(c.GetHeader("Authorization")); err != nil {
		return unauthorized(c)
	}

	var req sendRawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return pushFailure(err)
	}

	payload := []byte(req.Message)
	var text string
	if err := json.Unmarshal(req.Message, &text); err == nil {
		payload = []byte(text)
	}

	if err := a.push.Send(c.Request.Context(), req.Subscription, payload); err != nil {
		a.log.Warn("raw push delivery failed", zap.Error(err))
		return pushFailure(err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
	return nil
}

// pushFailure keeps the functions' error contract: 500 with the message.
func pushFailure(err error) error {
	return NewError(http.StatusInternalServerError, err.Error())
}

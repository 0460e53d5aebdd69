package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kotche/notes/internal/auth"
	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/platform"
)

type (
	subscribeRequest struct {
		Permission   model.Permission       `json:"permission"`
		Subscription model.PushSubscription `json:"subscription"`
	}

	notificationsRequest struct {
		Enabled *bool `json:"enabled"`
	}
)

func (a *API) pushKey(c *gin.Context) error {
	if a.vapidKey == "" {
		return model.ErrCapabilityMissing
	}
	c.JSON(http.StatusOK, gin.H{"public_key": a.vapidKey})
	return nil
}

// pushGuidance answers from the request's User-Agent. display_mode and touch
// are reported by the client since the server cannot observe them.
func (a *API) pushGuidance(c *gin.Context) error {
	standalone := c.Query("display_mode") == "standalone"
	touch, _ := strconv.ParseBool(c.DefaultQuery("touch", "false"))

	c.JSON(http.StatusOK, platform.Guide(c.Request.UserAgent(), standalone, touch))
	return nil
}

func (a *API) subscribe(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	var req subscribeRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return badRequest(err)
	}

	if err = a.settings.Subscribe(c.Request.Context(), identity.UserID, req.Permission, req.Subscription); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (a *API) unsubscribe(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	if err = a.settings.Unsubscribe(c.Request.Context(), identity.UserID); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (a *API) getSettings(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	s, err := a.settings.Settings(c.Request.Context(), identity.UserID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, s)
	return nil
}

func (a *API) setNotifications(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	var req notificationsRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return badRequest(err)
	}
	if req.Enabled == nil {
		return NewError(http.StatusBadRequest, "enabled is required")
	}

	if err = a.settings.SetNotificationsEnabled(c.Request.Context(), identity.UserID, *req.Enabled); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (a *API) issueTelegramLink(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	code, err := a.links.Issue(c.Request.Context(), identity.UserID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":       code,
		"command":    "/start " + code,
		"expires_in": int(a.linkTTL.Seconds()),
	})
	return nil
}

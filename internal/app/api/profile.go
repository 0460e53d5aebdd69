package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kotche/notes/internal/auth"
	"github.com/kotche/notes/internal/model"
)

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

func (a *API) me(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}
	c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "email": identity.Email})
	return nil
}

func (a *API) getProfile(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	profile, err := a.settings.Profile(c.Request.Context(), identity.UserID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, profile)
	return nil
}

func (a *API) updateProfile(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	var req updateProfileRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return badRequest(err)
	}

	profile, err := a.settings.UpdateProfile(c.Request.Context(), identity.UserID, req.DisplayName)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, profile)
	return nil
}

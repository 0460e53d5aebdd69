package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

// BizError carries an explicit status for errors that do not map to a
// sentinel.
type BizError struct {
	Code int
	Msg  string
}

func (e *BizError) Error() string {
	return e.Msg
}

func NewError(code int, msg string) *BizError {
	return &BizError{Code: code, Msg: msg}
}

type errorResponse struct {
	Error string `json:"error"`
}

var statuses = []struct {
	err    error
	status int
}{
	{model.ErrUnauthorized, http.StatusUnauthorized},
	{model.ErrUserMismatch, http.StatusUnauthorized},
	{model.ErrEmptyContent, http.StatusBadRequest},
	{model.ErrInvalidSubscription, http.StatusBadRequest},
	{model.ErrPermissionDenied, http.StatusForbidden},
	{model.ErrNoteNotFound, http.StatusNotFound},
	{model.ErrSubscriptionNotFound, http.StatusNotFound},
	{model.ErrLinkCodeNotFound, http.StatusNotFound},
	{model.ErrPermissionRequired, http.StatusConflict},
	{model.ErrSubscriptionGone, http.StatusGone},
	{model.ErrCapabilityMissing, http.StatusUnprocessableEntity},
}

func statusOf(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// wrap turns an error-returning handler into a gin handler. Unmapped errors
// are logged and reported without their details.
func (a *API) wrap(h func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h(c)
		if err == nil || c.Writer.Written() {
			return
		}

		var be *BizError
		if errors.As(err, &be) {
			c.AbortWithStatusJSON(be.Code, errorResponse{Error: be.Msg})
			return
		}

		status := statusOf(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			a.log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			msg = "internal error"
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: msg})
	}
}

func badRequest(err error) error {
	return NewError(http.StatusBadRequest, "invalid request: "+err.Error())
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kotche/notes/internal/auth"
	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/reminder"
)

type (
	createNoteRequest struct {
		Content          string     `json:"content"`
		NotificationTime *time.Time `json:"notification_time"`
	}

	noteResponse struct {
		model.Note
		// TimeLeft is set for reminders that have not fired yet.
		TimeLeft string `json:"time_left,omitempty"`
	}
)

func (a *API) toResponse(n model.Note, now time.Time) noteResponse {
	resp := noteResponse{Note: n}
	if n.HasPendingReminder() {
		resp.TimeLeft = reminder.Countdown(*n.NotificationTime, now)
	}
	return resp
}

func (a *API) listNotes(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	list, err := a.notes.List(c.Request.Context(), identity.UserID)
	if err != nil {
		return err
	}

	now := a.now()
	resp := make([]noteResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, a.toResponse(n, now))
	}
	c.JSON(http.StatusOK, resp)
	return nil
}

func (a *API) createNote(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	var req createNoteRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return badRequest(err)
	}

	note, err := a.notes.Create(c.Request.Context(), identity.UserID, req.Content, req.NotificationTime)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, a.toResponse(note, a.now()))
	return nil
}

func (a *API) getNote(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	noteID, err := noteIDParam(c)
	if err != nil {
		return err
	}

	note, err := a.notes.Get(c.Request.Context(), noteID, identity.UserID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, a.toResponse(*note, a.now()))
	return nil
}

func (a *API) deleteNote(c *gin.Context) error {
	identity, err := auth.FromContext(c)
	if err != nil {
		return model.ErrUnauthorized
	}

	noteID, err := noteIDParam(c)
	if err != nil {
		return err
	}

	if err = a.notes.Delete(c.Request.Context(), noteID, identity.UserID); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func noteIDParam(c *gin.Context) (model.NoteID, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewError(http.StatusBadRequest, "invalid note id")
	}
	return model.NoteID(id), nil
}

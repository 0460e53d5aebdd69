package link

import (
	"context"

	"github.com/kotche/notes/internal/model"
)

type (
	// Service hands out short-lived codes that tie a Telegram chat to a user.
	Service interface {
		Issue(ctx context.Context, userID model.UserID) (string, error)
		Redeem(ctx context.Context, code string) (model.UserID, error)
	}
)

package model

import "errors"

var (
	ErrUnauthorized = errors.New("user not authenticated")
	ErrUserMismatch = errors.New("token subject does not match user")

	ErrNoteNotFound = errors.New("note not found")
	ErrEmptyContent = errors.New("note content is empty")

	// ErrCapabilityMissing means no delivery channel exists for the user. It is
	// checked before delivery and never counts as a sent notification.
	ErrCapabilityMissing  = errors.New("notifications are not supported")
	ErrPermissionDenied   = errors.New("notification permission denied")
	ErrPermissionRequired = errors.New("notification permission not yet granted")

	ErrSubscriptionNotFound = errors.New("push subscription not found")
	ErrSubscriptionGone     = errors.New("push subscription expired")
	ErrInvalidSubscription  = errors.New("push subscription is incomplete")

	ErrLinkCodeNotFound = errors.New("link code not found or expired")
)

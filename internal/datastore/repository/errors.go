package repository

import "errors"

// Sentinel errors surfaced to callers as not-found conditions.
var (
	ErrDefinitionNotFound   = errors.New("alarm definition not found")
	ErrAlarmNotFound        = errors.New("alarm not found")
	ErrNotificationNotFound = errors.New("alarm notification not found")
)

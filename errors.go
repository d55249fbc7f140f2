package blogdesk

import "errors"

var (
	ErrPostExists       = errors.New("post already exists")
	ErrPostNotFound     = errors.New("post not found")
	ErrStoreUnavailable = errors.New("post store unavailable")
	ErrCreateFailed     = errors.New("post creation failed")
	ErrInvalidAction    = errors.New("invalid post action")
	ErrInvalidPostFile  = errors.New("invalid post file")
)

package videos

import "errors"

var (
	// ErrVideoNotFound indicates the video does not exist.
	ErrVideoNotFound = errors.New("video not found")
	// ErrForbidden indicates the caller may not see or change the video.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyLiked indicates the caller already likes the video.
	ErrAlreadyLiked = errors.New("video already liked")
	// ErrUserNotFound indicates the acting or requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrMissingMedia indicates a create request carried no video file.
	ErrMissingMedia = errors.New("video file is required")
	// ErrEmptyComment indicates a comment with no text.
	ErrEmptyComment = errors.New("comment must not be empty")
	// ErrInvalidInput indicates malformed video metadata.
	ErrInvalidInput = errors.New("invalid video input")
)

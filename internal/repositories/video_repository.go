package repositories

import (
	"context"

	"github.com/guille1999utp/bemaster-part-2/internal/models"
)

// TopRatedLimit caps the top-rated listing.
const TopRatedLimit = 10

// VideoRepository exposes data access for uploaded videos and their likes.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	// Delete removes the video together with its likes and comments.
	Delete(ctx context.Context, id string) error
	// AddLike records userID as a liker. A repeated like returns ErrConflict and
	// an unknown video or user returns ErrNotFound.
	AddLike(ctx context.Context, videoID, userID string) error
	ListByOwner(ctx context.Context, ownerID string, visibility models.Visibility) ([]models.Video, error)
	// TopRated lists public videos by like count, newest first on ties.
	TopRated(ctx context.Context, limit int) ([]models.Video, error)
}

// CommentRepository persists comments. Comments are never edited.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

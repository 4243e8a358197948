package handlers

import (
	"context"

	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/videos"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByNickname(ctx context.Context, nickname string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// VideoService implements the video workflows behind the /video routes.
type VideoService interface {
	Create(ctx context.Context, caller string, in videos.CreateInput) (models.Video, error)
	Update(ctx context.Context, caller, id string, in videos.UpdateInput) (models.Video, error)
	Delete(ctx context.Context, caller, id string) error
	Get(ctx context.Context, caller, id string) (videos.Details, error)
	Like(ctx context.Context, caller, id string) (models.LikerSet, error)
	Comment(ctx context.Context, caller, id, body string) (models.Comment, error)
	TopRated(ctx context.Context) ([]models.Video, error)
	PublicByNickname(ctx context.Context, nickname string) ([]models.Video, error)
	PrivateByNickname(ctx context.Context, caller, nickname string) ([]models.Video, error)
}

// VideoPurger removes every video of a user before the account goes away.
type VideoPurger interface {
	PurgeOwner(ctx context.Context, ownerID string) error
}

// VideoManager is the full video surface consumed by the router.
type VideoManager interface {
	VideoService
	VideoPurger
}

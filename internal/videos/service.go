package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guille1999utp/bemaster-part-2/internal/logging"
	"github.com/guille1999utp/bemaster-part-2/internal/metrics"
	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
	"github.com/guille1999utp/bemaster-part-2/internal/storage"
)

// UserLookup resolves the users that act on or own videos.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByNickname(ctx context.Context, nickname string) (models.User, error)
}

// MediaStore keeps the binary video files.
type MediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// OrphanCleaner disposes of media that never got a metadata record.
type OrphanCleaner interface {
	Enqueue(ctx context.Context, key string) error
}

// Config wires a Service. Cache, Cleaner, Metrics and Now are optional.
type Config struct {
	Users     UserLookup
	Videos    repositories.VideoRepository
	Comments  repositories.CommentRepository
	Media     MediaStore
	Cache     TopRatedCache
	Cleaner   OrphanCleaner
	Metrics   *metrics.Metrics
	KeyPrefix string
	Now       func() time.Time
}

// Service implements the video workflows on top of the stores and the
// visibility policy.
type Service struct {
	users    UserLookup
	videos   repositories.VideoRepository
	comments repositories.CommentRepository
	media    MediaStore
	cache    TopRatedCache
	cleaner  OrphanCleaner
	metrics  *metrics.Metrics
	prefix   string
	now      func() time.Time
}

// NewService builds a Service from cfg.
func NewService(cfg Config) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryTopRatedCache(0)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "videos"
	}

	return &Service{
		users:    cfg.Users,
		videos:   cfg.Videos,
		comments: cfg.Comments,
		media:    cfg.Media,
		cache:    cache,
		cleaner:  cfg.Cleaner,
		metrics:  cfg.Metrics,
		prefix:   prefix,
		now:      now,
	}
}

// CreateInput carries an upload. File is read once.
type CreateInput struct {
	Title       string
	Description string
	Credits     string
	Public      bool
	File        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// UpdateInput carries a partial metadata edit; nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Credits     *string
	Public      *bool
}

// Details is a video with its comments.
type Details struct {
	models.Video
	Comments []models.Comment `json:"comments"`
}

// Create uploads the media and records the video as owned by caller.
func (s *Service) Create(ctx context.Context, caller string, in CreateInput) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.create")
	defer func() { span.End(err) }()

	if err := s.requireUser(ctx, caller); err != nil {
		return models.Video{}, err
	}
	if in.File == nil {
		return models.Video{}, ErrMissingMedia
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.Video{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	key := storage.ObjectKey(s.prefix, in.Filename)
	url, err := s.media.Upload(ctx, key, in.File, in.ContentType)
	if err != nil {
		return models.Video{}, fmt.Errorf("upload media: %w", err)
	}

	video = models.Video{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Credits:     strings.TrimSpace(in.Credits),
		OwnerID:     caller,
		Visibility:  models.VisibilityFromBool(in.Public),
		MediaKey:    key,
		URL:         url,
		PublishedAt: s.now().UTC(),
		Likers:      models.NewLikerSet(),
	}

	if err := s.videos.Create(ctx, video); err != nil {
		s.discardMedia(ctx, key)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, ErrUserNotFound
		}
		return models.Video{}, fmt.Errorf("store video: %w", err)
	}

	if video.IsPublic() {
		s.cache.Invalidate(ctx)
	}
	s.metrics.VideoUploaded(in.Size)
	logging.FromContext(ctx).Info().Str("video_id", video.ID).Str("owner_id", caller).Msg("video created")
	return video, nil
}

func (s *Service) discardMedia(ctx context.Context, key string) {
	logger := logging.FromContext(ctx)
	if s.cleaner != nil {
		if err := s.cleaner.Enqueue(context.WithoutCancel(ctx), key); err == nil {
			return
		}
	}
	if err := s.media.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("failed to remove orphaned media")
	}
}

// Update edits the metadata of a video owned by caller.
func (s *Service) Update(ctx context.Context, caller, id string, in UpdateInput) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.update")
	defer func() { span.End(err) }()

	video, err = s.load(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if err := CheckMutate(&video, caller); err != nil {
		return models.Video{}, err
	}

	wasPublic := video.IsPublic()
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		video.Title = title
	}
	if in.Description != nil {
		video.Description = strings.TrimSpace(*in.Description)
	}
	if in.Credits != nil {
		video.Credits = strings.TrimSpace(*in.Credits)
	}
	if in.Public != nil {
		video.Visibility = models.VisibilityFromBool(*in.Public)
	}

	if err := s.videos.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}

	if wasPublic || video.IsPublic() {
		s.cache.Invalidate(ctx)
	}
	return video, nil
}

// Delete removes the media object first and only then the video record with
// its likes and comments. A media failure leaves everything in place.
func (s *Service) Delete(ctx context.Context, caller, id string) (err error) {
	ctx, span := logging.StartSpan(ctx, "videos.delete")
	defer func() { span.End(err) }()

	video, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckMutate(&video, caller); err != nil {
		return err
	}
	return s.remove(ctx, video)
}

func (s *Service) remove(ctx context.Context, video models.Video) error {
	if err := s.media.Delete(ctx, video.MediaKey); err != nil {
		return fmt.Errorf("delete media for video %s: %w", video.ID, err)
	}
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("delete video %s: %w", video.ID, err)
	}

	if video.IsPublic() {
		s.cache.Invalidate(ctx)
	}
	s.metrics.VideoDeleted()
	logging.FromContext(ctx).Info().Str("video_id", video.ID).Msg("video deleted")
	return nil
}

// Get returns a video and its comments if caller may see it.
func (s *Service) Get(ctx context.Context, caller, id string) (details Details, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.get")
	defer func() { span.End(err) }()

	video, err := s.load(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if err := CheckView(&video, caller); err != nil {
		return Details{}, err
	}

	comments, err := s.comments.ListByVideo(ctx, id)
	if err != nil {
		return Details{}, fmt.Errorf("list comments: %w", err)
	}
	return Details{Video: video, Comments: comments}, nil
}

// Like adds caller to the video's likers and returns the updated set.
func (s *Service) Like(ctx context.Context, caller, id string) (likers models.LikerSet, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.like")
	defer func() { span.End(err) }()

	if err := s.requireUser(ctx, caller); err != nil {
		return nil, err
	}

	video, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckLike(&video, caller); err != nil {
		return nil, err
	}

	// The store arbitrates concurrent likes; the policy check above only
	// short-circuits the common case.
	if err := s.videos.AddLike(ctx, id, caller); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrAlreadyLiked
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("add like: %w", err)
	}

	video.Likers.Add(caller)
	if video.IsPublic() {
		s.cache.Invalidate(ctx)
	}
	s.metrics.VideoLiked()
	return video.Likers, nil
}

// Comment appends a comment by caller to a video caller may see.
func (s *Service) Comment(ctx context.Context, caller, id, body string) (comment models.Comment, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.comment")
	defer func() { span.End(err) }()

	body = strings.TrimSpace(body)
	if body == "" {
		return models.Comment{}, ErrEmptyComment
	}

	video, err := s.load(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	if err := CheckComment(&video, caller); err != nil {
		return models.Comment{}, err
	}

	comment = models.Comment{
		ID:        uuid.NewString(),
		VideoID:   id,
		UserID:    caller,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, ErrVideoNotFound
		}
		return models.Comment{}, fmt.Errorf("store comment: %w", err)
	}

	s.metrics.CommentPosted()
	return comment, nil
}

// TopRated returns at most ten public videos ordered by like count.
func (s *Service) TopRated(ctx context.Context) (videos []models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.top_rated")
	defer func() { span.End(err) }()

	cached, generation, ok := s.cache.Get(ctx)
	if ok {
		return cached, nil
	}

	videos, err = s.videos.TopRated(ctx, repositories.TopRatedLimit)
	if err != nil {
		return nil, fmt.Errorf("list top rated: %w", err)
	}
	s.cache.Set(ctx, generation, videos)
	return videos, nil
}

// PublicByNickname lists the public videos of the user with nickname.
func (s *Service) PublicByNickname(ctx context.Context, nickname string) (videos []models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.public_by_nickname")
	defer func() { span.End(err) }()

	owner, err := s.findByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}
	videos, err = s.videos.ListByOwner(ctx, owner.ID, models.VisibilityPublic)
	if err != nil {
		return nil, fmt.Errorf("list public videos: %w", err)
	}
	return videos, nil
}

// PrivateByNickname lists the private videos of the user with nickname. Only
// that user may ask; anyone else gets ErrForbidden.
func (s *Service) PrivateByNickname(ctx context.Context, caller, nickname string) (videos []models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.private_by_nickname")
	defer func() { span.End(err) }()

	owner, err := s.findByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}
	if caller == "" || owner.ID != caller {
		return nil, ErrForbidden
	}

	videos, err = s.videos.ListByOwner(ctx, owner.ID, models.VisibilityPrivate)
	if err != nil {
		return nil, fmt.Errorf("list private videos: %w", err)
	}
	return videos, nil
}

// PurgeOwner deletes every video of ownerID through the same media-first path
// as Delete. It stops at the first failure so it can be retried.
func (s *Service) PurgeOwner(ctx context.Context, ownerID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "videos.purge_owner")
	defer func() { span.End(err) }()

	for _, visibility := range []models.Visibility{models.VisibilityPublic, models.VisibilityPrivate} {
		owned, err := s.videos.ListByOwner(ctx, ownerID, visibility)
		if err != nil {
			return fmt.Errorf("list %s videos: %w", visibility, err)
		}
		for _, video := range owned {
			if err := s.remove(ctx, video); err != nil && !errors.Is(err, ErrVideoNotFound) {
				return err
			}
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (models.Video, error) {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, fmt.Errorf("load video %s: %w", id, err)
	}
	if video.Likers == nil {
		video.Likers = models.NewLikerSet()
	}
	return video, nil
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if id == "" {
		return ErrUserNotFound
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user %s: %w", id, err)
	}
	return nil
}

func (s *Service) findByNickname(ctx context.Context, nickname string) (models.User, error) {
	user, err := s.users.FindByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("load user %q: %w", nickname, err)
	}
	return user, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
)

// VideoRepository implements repositories.VideoRepository for SQLite.
type VideoRepository struct {
	db  *DB
	now func() time.Time
}

// NewVideoRepository creates a SQLite video repository.
func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db, now: time.Now}
}

const videoSelect = `
	SELECT v.id, v.owner_id, v.title, v.description, v.credits, v.visibility,
	       v.media_key, v.url, v.published_at, COALESCE(group_concat(l.user_id), '')
	FROM videos v
	LEFT JOIN video_likes l ON l.video_id = v.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (models.Video, error) {
	var (
		video                 models.Video
		visibility, published string
		likers                string
	)
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.Credits, &visibility,
		&video.MediaKey, &video.URL, &published, &likers,
	); err != nil {
		return models.Video{}, err
	}

	video.Visibility = models.Visibility(visibility)
	if !video.Visibility.Valid() {
		return models.Video{}, fmt.Errorf("%w: video %s has visibility %q", errCorruptRow, video.ID, visibility)
	}

	publishedAt, err := parseTime(published)
	if err != nil {
		return models.Video{}, err
	}
	video.PublishedAt = publishedAt

	var ids []string
	if likers != "" {
		ids = strings.Split(likers, ",")
	}
	video.Likers = models.NewLikerSet(ids...)
	return video, nil
}

func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO videos (id, owner_id, title, description, credits, visibility, media_key, url, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, video.ID, video.OwnerID, video.Title, video.Description, video.Credits, string(video.Visibility),
		video.MediaKey, video.URL, formatTime(video.PublishedAt))
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	video, err := scanVideo(r.db.db.QueryRowContext(ctx, videoSelect+`
	WHERE v.id = ?
	GROUP BY v.id`, id))
	if err != nil {
		if isNoRows(err) {
			return models.Video{}, repositories.ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) Update(ctx context.Context, video models.Video) error {
	res, err := r.db.db.ExecContext(ctx, `
		UPDATE videos
		SET title = ?, description = ?, credits = ?, visibility = ?
		WHERE id = ?
	`, video.Title, video.Description, video.Credits, string(video.Visibility), video.ID)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return expectRow(res)
}

// Delete removes the video with its likes and comments atomically.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE video_id = ?`, id); err != nil {
			return fmt.Errorf("delete video comments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_likes WHERE video_id = ?`, id); err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		return expectRow(res)
	})
}

// AddLike is a single conditional insert; the primary key rejects duplicates.
func (r *VideoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	res, err := r.db.db.ExecContext(ctx, `
		INSERT INTO video_likes (video_id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (video_id, user_id) DO NOTHING
	`, videoID, userID, formatTime(r.now()))
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert like: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repositories.ErrConflict
	}
	return nil
}

func (r *VideoRepository) ListByOwner(ctx context.Context, ownerID string, visibility models.Visibility) ([]models.Video, error) {
	return r.list(ctx, videoSelect+`
	WHERE v.owner_id = ? AND v.visibility = ?
	GROUP BY v.id
	ORDER BY v.published_at DESC, v.id`, ownerID, string(visibility))
}

func (r *VideoRepository) TopRated(ctx context.Context, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = repositories.TopRatedLimit
	}
	return r.list(ctx, videoSelect+`
	WHERE v.visibility = 'public'
	GROUP BY v.id
	ORDER BY COUNT(l.user_id) DESC, v.published_at DESC, v.id
	LIMIT ?`, limit)
}

func (r *VideoRepository) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

var _ repositories.VideoRepository = (*VideoRepository)(nil)

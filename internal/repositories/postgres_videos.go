package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guille1999utp/bemaster-part-2/internal/db"
	"github.com/guille1999utp/bemaster-part-2/internal/models"
)

// PostgresVideoRepository persists videos and their likes.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoSelect = `
        SELECT v.id, v.owner_id, v.title, v.description, v.credits, v.visibility,
               v.media_key, v.url, v.published_at,
               COALESCE(array_agg(l.user_id) FILTER (WHERE l.user_id IS NOT NULL), ARRAY[]::TEXT[]) AS likers
        FROM videos v
        LEFT JOIN video_likes l ON l.video_id = v.id`

func scanVideo(row rowScanner) (models.Video, error) {
	var (
		video      models.Video
		visibility string
		likers     []string
	)
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.Credits, &visibility,
		&video.MediaKey, &video.URL, &video.PublishedAt, &likers,
	); err != nil {
		return models.Video{}, err
	}
	video.Visibility = models.Visibility(visibility)
	video.Likers = models.NewLikerSet(likers...)
	return video, nil
}

// Create inserts a new video with no likes.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, credits, visibility, media_key, url, published_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.Credits, string(video.Visibility),
		video.MediaKey, video.URL, video.PublishedAt)
	if err != nil {
		if mapped := classifyPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID loads a video and its likers.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, videoSelect+`
        WHERE v.id = $1
        GROUP BY v.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// Update rewrites the editable metadata. Owner, media and likes are untouched.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, credits = $4, visibility = $5
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Credits, string(video.Visibility))
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the video, its likes and its comments in one transaction.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete video: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE video_id = $1`, id); err != nil {
		return fmt.Errorf("delete video comments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM video_likes WHERE video_id = $1`, id); err != nil {
		return fmt.Errorf("delete video likes: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete video: %w", err)
	}
	return nil
}

// AddLike inserts the (video, user) pair unless it already exists.
func (r *PostgresVideoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO video_likes (video_id, user_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (video_id, user_id) DO NOTHING
    `, videoID, userID)
	if err != nil {
		if mapped := classifyPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// ListByOwner returns the owner's videos with the given visibility, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string, visibility models.Visibility) ([]models.Video, error) {
	return r.list(ctx, videoSelect+`
        WHERE v.owner_id = $1 AND v.visibility = $2
        GROUP BY v.id
        ORDER BY v.published_at DESC, v.id`, ownerID, string(visibility))
}

// TopRated returns at most limit public videos ordered by like count.
func (r *PostgresVideoRepository) TopRated(ctx context.Context, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = TopRatedLimit
	}
	return r.list(ctx, videoSelect+`
        WHERE v.visibility = 'public'
        GROUP BY v.id
        ORDER BY COUNT(l.user_id) DESC, v.published_at DESC, v.id
        LIMIT $1`, limit)
}

func (r *PostgresVideoRepository) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
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

// PostgresCommentRepository persists comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a comment. An unknown video or user yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, user_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.VideoID, comment.UserID, comment.Body, comment.CreatedAt)
	if err != nil {
		if mapped := classifyPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByVideo returns the comments on a video, oldest first.
func (r *PostgresCommentRepository) ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, video_id, user_id, body, created_at
        FROM comments
        WHERE video_id = $1
        ORDER BY created_at ASC, id ASC
    `, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.VideoID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

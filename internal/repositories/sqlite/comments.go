package sqlite

import (
	"context"
	"fmt"

	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
)

// CommentRepository implements repositories.CommentRepository for SQLite.
type CommentRepository struct {
	db *DB
}

// NewCommentRepository creates a SQLite comment repository.
func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment models.Comment) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO comments (id, video_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, comment.ID, comment.VideoID, comment.UserID, comment.Body, formatTime(comment.CreatedAt))
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByVideo returns comments oldest first.
func (r *CommentRepository) ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, video_id, user_id, body, created_at
		FROM comments
		WHERE video_id = ?
		ORDER BY created_at ASC, id ASC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var (
			c         models.Comment
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.VideoID, &c.UserID, &c.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

var _ repositories.CommentRepository = (*CommentRepository)(nil)

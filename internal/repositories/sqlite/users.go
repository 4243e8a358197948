package sqlite

import (
	"context"
	"fmt"

	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
)

// UserRepository implements repositories.UserRepository for SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a SQLite user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user, returning ErrConflict when the email or nickname is taken.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO users (id, name, nickname, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Nickname, user.Email, user.PasswordHash,
		formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	var (
		user                 models.User
		createdAt, updatedAt string
	)
	err := r.db.db.QueryRowContext(ctx, `
		SELECT id, name, nickname, email, password_hash, created_at, updated_at
		FROM users
		WHERE `+column+` = ?
	`, value).Scan(&user.ID, &user.Name, &user.Nickname, &user.Email, &user.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.User{}, repositories.ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepository) FindByNickname(ctx context.Context, nickname string) (models.User, error) {
	return r.findOne(ctx, "nickname", nickname)
}

// Update rewrites the profile fields and credential of an existing user.
func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	res, err := r.db.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, nickname = ?, email = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`, user.Name, user.Nickname, user.Email, user.PasswordHash, formatTime(user.UpdatedAt), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectRow(res)
}

// Delete removes a user; videos they still own make it fail with ErrConflict.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return expectRow(res)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffecter) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)

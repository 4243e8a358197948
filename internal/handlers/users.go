package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/guille1999utp/bemaster-part-2/internal/auth"
	"github.com/guille1999utp/bemaster-part-2/internal/logging"
	"github.com/guille1999utp/bemaster-part-2/internal/models"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
)

// UserHandler exposes account endpoints.
type UserHandler struct {
	Users   UserStore
	Tokens  TokenIssuer
	Videos  VideoPurger
	NowFunc func() time.Time
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Nickname string `json:"nickname" validate:"required,min=2,max=32,excludesall=/?#@"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// loginRequest accepts either an email or a nickname in Email.
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Nickname *string `json:"nickname" validate:"omitempty,min=2,max=32,excludesall=/?#@"`
}

// Register creates a new account and returns it with an access token.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.trim()
	if !validStruct(ctx, w, &req) {
		return
	}

	if msg, err := h.duplicate(ctx, req.Email, req.Nickname); err != nil {
		logger.Error().Err(err).Msg("check existing user")
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	} else if msg != "" {
		respondError(ctx, w, http.StatusBadRequest, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("hash password")
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	now := h.now()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Nickname:     req.Nickname,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusBadRequest, "email or nickname already registered")
			return
		}
		logger.Error().Err(err).Msg("create user")
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("issue token")
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("user registered")
	respondOK(ctx, w, envelope{"user": user, "token": token})
}

func (req *registerRequest) trim() {
	req.Name = strings.TrimSpace(req.Name)
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
}

func (req *updateUserRequest) trim() {
	req.Name = strings.TrimSpace(req.Name)
	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		req.Nickname = &nickname
	}
}

// duplicate reports which unique field of a new account is already taken.
func (h UserHandler) duplicate(ctx context.Context, email, nickname string) (string, error) {
	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		return "email already registered", nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}
	if _, err := h.Users.FindByNickname(ctx, nickname); err == nil {
		return "nickname already taken", nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}
	return "", nil
}

// Login authenticates by email or nickname and returns a fresh token.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identifier := strings.TrimSpace(req.Email)
	var (
		user models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = h.Users.FindByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = h.Users.FindByNickname(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error().Err(err).Msg("lookup user for login")
		respondError(ctx, w, http.StatusInternalServerError, "failed to login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn().Str("user_id", user.ID).Msg("invalid login attempt")
		respondError(ctx, w, http.StatusNotFound, "invalid credentials")
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("issue token")
		respondError(ctx, w, http.StatusInternalServerError, "failed to login")
		return
	}

	respondOK(ctx, w, envelope{"user": user, "token": token})
}

// Update changes the caller's display name and optionally their nickname.
func (h UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, ok := h.self(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.trim()
	if !validStruct(ctx, w, &req) {
		return
	}

	user, err := h.Users.FindByID(ctx, id)
	if err != nil {
		h.lookupFailed(ctx, w, err)
		return
	}

	user.Name = req.Name
	if req.Nickname != nil {
		user.Nickname = *req.Nickname
	}
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusBadRequest, "nickname already taken")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user not found")
		default:
			logger.Error().Err(err).Str("user_id", id).Msg("update user")
			respondError(ctx, w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	respondOK(ctx, w, envelope{"user": user})
}

// Delete removes the caller's account after deleting every video they own.
func (h UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	id, ok := h.self(w, r)
	if !ok {
		return
	}

	if _, err := h.Users.FindByID(ctx, id); err != nil {
		h.lookupFailed(ctx, w, err)
		return
	}

	if h.Videos != nil {
		if err := h.Videos.PurgeOwner(ctx, id); err != nil {
			logger.Error().Err(err).Str("user_id", id).Msg("purge user videos")
			respondError(ctx, w, http.StatusInternalServerError, "failed to delete user")
			return
		}
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error().Err(err).Str("user_id", id).Msg("delete user")
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	logger.Info().Str("user_id", id).Msg("user deleted")
	respondOK(ctx, w, envelope{"msg": "user deleted"})
}

// Profile returns the public profile of the user with the given nickname.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByNickname(ctx, chi.URLParam(r, "nickname"))
	if err != nil {
		h.lookupFailed(ctx, w, err)
		return
	}

	respondOK(ctx, w, envelope{"user": user.Profile()})
}

// self returns the {id} path parameter when it names the caller.
func (h UserHandler) self(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)
	id := chi.URLParam(r, "id")
	if caller == "" || id != caller {
		respondError(ctx, w, http.StatusUnauthorized, "not allowed to modify this user")
		return "", false
	}
	return id, true
}

func (h UserHandler) lookupFailed(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(ctx, w, http.StatusNotFound, "user not found")
		return
	}
	logging.FromContext(ctx).Error().Err(err).Msg("lookup user")
	respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

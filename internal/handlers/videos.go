package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/guille1999utp/bemaster-part-2/internal/auth"
	"github.com/guille1999utp/bemaster-part-2/internal/logging"
	"github.com/guille1999utp/bemaster-part-2/internal/videos"
)

const (
	// DefaultMaxUploadBytes caps a video upload when no limit is configured.
	DefaultMaxUploadBytes int64 = 512 << 20

	multipartMemory int64 = 32 << 20
	videoFileField        = "video"
)

// VideoHandler exposes the /video endpoints.
type VideoHandler struct {
	Videos         VideoService
	MaxUploadBytes int64
}

type createVideoForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"required,max=5000"`
	Credits     string `form:"credits" validate:"required,max=500"`
	Public      string `form:"public" validate:"required,oneof=true false"`
}

type updateVideoRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Credits     *string `json:"credits" validate:"omitempty,max=500"`
	Public      *bool   `json:"public"`
}

func (req updateVideoRequest) empty() bool {
	return req.Title == nil && req.Description == nil && req.Credits == nil && req.Public == nil
}

type commentRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}

// Create accepts a multipart upload with the media in the "video" part.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "video file is too large")
			return
		}
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := createVideoForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Credits:     strings.TrimSpace(r.FormValue("credits")),
		Public:      strings.ToLower(strings.TrimSpace(r.FormValue("public"))),
	}
	if !validStruct(ctx, w, &form) {
		return
	}

	file, header, err := r.FormFile(videoFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, videos.ErrMissingMedia.Error())
			return
		}
		respondError(ctx, w, http.StatusBadRequest, "invalid video file")
		return
	}
	defer file.Close()

	video, err := h.Videos.Create(ctx, caller, videos.CreateInput{
		Title:       form.Title,
		Description: form.Description,
		Credits:     form.Credits,
		Public:      form.Public == "true",
		File:        file,
		Filename:    header.Filename,
		ContentType: contentType(header),
		Size:        header.Size,
	})
	if err != nil {
		h.fail(ctx, w, err, "create video")
		return
	}

	respondOK(ctx, w, envelope{"video": video})
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Update edits the metadata of one of the caller's videos.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	var req updateVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.empty() {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}

	video, err := h.Videos.Update(ctx, caller, chi.URLParam(r, "id"), videos.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Credits:     req.Credits,
		Public:      req.Public,
	})
	if err != nil {
		h.fail(ctx, w, err, "update video")
		return
	}

	respondOK(ctx, w, envelope{"video": video})
}

// Delete removes one of the caller's videos together with its media.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	if err := h.Videos.Delete(ctx, caller, chi.URLParam(r, "id")); err != nil {
		h.fail(ctx, w, err, "delete video")
		return
	}

	respondOK(ctx, w, envelope{"msg": "video deleted"})
}

// Get returns a video with its comments. Anonymous callers only see public videos.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	details, err := h.Videos.Get(ctx, caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "get video")
		return
	}

	respondOK(ctx, w, envelope{"video": details})
}

func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	likers, err := h.Videos.Like(ctx, caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "like video")
		return
	}

	respondOK(ctx, w, envelope{"likes": likers})
}

func (h VideoHandler) Comment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if !validStruct(ctx, w, &req) {
		return
	}

	comment, err := h.Videos.Comment(ctx, caller, chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		h.fail(ctx, w, err, "comment on video")
		return
	}

	respondOK(ctx, w, envelope{"comment": comment})
}

// TopRated lists the most liked public videos.
func (h VideoHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Videos.TopRated(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list top rated videos")
		return
	}

	respondOK(ctx, w, envelope{"videos": list})
}

func (h VideoHandler) PublicByNickname(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Videos.PublicByNickname(ctx, chi.URLParam(r, "nickname"))
	if err != nil {
		h.fail(ctx, w, err, "list public videos")
		return
	}

	respondOK(ctx, w, envelope{"videos": list})
}

// PrivateByNickname lists private videos. Only their owner may call it.
func (h VideoHandler) PrivateByNickname(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := auth.UserIDFromContext(ctx)

	list, err := h.Videos.PrivateByNickname(ctx, caller, chi.URLParam(r, "nickname"))
	if err != nil {
		h.fail(ctx, w, err, "list private videos")
		return
	}

	respondOK(ctx, w, envelope{"videos": list})
}

func (h VideoHandler) fail(ctx context.Context, w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, videos.ErrVideoNotFound):
		respondError(ctx, w, http.StatusNotFound, "video not found")
	case errors.Is(err, videos.ErrUserNotFound):
		respondError(ctx, w, http.StatusNotFound, "user not found")
	case errors.Is(err, videos.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "not allowed to access this video")
	case errors.Is(err, videos.ErrAlreadyLiked):
		respondError(ctx, w, http.StatusBadRequest, "video already liked")
	case errors.Is(err, videos.ErrMissingMedia),
		errors.Is(err, videos.ErrEmptyComment),
		errors.Is(err, videos.ErrInvalidInput):
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(ctx).Error().Err(err).Msg(action)
		respondError(ctx, w, http.StatusInternalServerError, "failed to "+action)
	}
}

func (h VideoHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

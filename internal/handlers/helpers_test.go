package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/guille1999utp/bemaster-part-2/internal/auth"
	"github.com/guille1999utp/bemaster-part-2/internal/middleware"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories/sqlite"
	"github.com/guille1999utp/bemaster-part-2/internal/videos"
)

type memoryMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryMedia) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://media.test/" + key, nil
}

func (m *memoryMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testServer struct {
	handler http.Handler
	media   *memoryMedia
}

func newTestServer(t *testing.T, configure ...func(*Dependencies)) *testServer {
	t.Helper()

	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	users := sqlite.NewUserRepository(db)
	media := &memoryMedia{objects: make(map[string][]byte)}
	svc := videos.NewService(videos.Config{
		Users:    users,
		Videos:   sqlite.NewVideoRepository(db),
		Comments: sqlite.NewCommentRepository(db),
		Media:    media,
	})

	deps := Dependencies{
		Users:       users,
		Tokens:      tokens,
		Verifier:    tokens,
		TokenHeader: middleware.DefaultTokenHeader,
		Videos:      svc,
		HealthCheck: HealthHandler{Check: db.Ping},
		Logger:      zerolog.Nop(),
	}
	for _, fn := range configure {
		fn(&deps)
	}

	return &testServer{handler: NewRouter(deps), media: media}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.DefaultTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, token string, fields map[string]string, file []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(videoFileField, "clip.mp4")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/video/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set(middleware.DefaultTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type account struct {
	ID    string
	Token string
}

func (s *testServer) register(t *testing.T, nickname string) account {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/user/register", map[string]string{
		"name":     "Name " + nickname,
		"nickname": nickname,
		"email":    nickname + "@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return account{ID: user["id"].(string), Token: body["token"].(string)}
}

func (s *testServer) createVideo(t *testing.T, token string, public bool) string {
	t.Helper()

	visibility := "false"
	if public {
		visibility = "true"
	}
	rec := s.upload(t, token, map[string]string{
		"title":       "clip",
		"description": "a clip",
		"credits":     "me",
		"public":      visibility,
	}, []byte("video-bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return decode(t, rec)["video"].(map[string]any)["id"].(string)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/assistant"
	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
	"github.com/clipforge/clipforge/pkg/render"
	"github.com/clipforge/clipforge/pkg/store"
)

type stubChat struct {
	reply string
	err   error
}

func (c *stubChat) Chat(ctx context.Context, messages []assistant.ChatMessage) (string, error) {
	return c.reply, c.err
}

type stubStrategy struct{}

func (stubStrategy) Render(ctx context.Context, p *project.Project, format effects.Format, outputPath string, onProgress func(float64)) (string, error) {
	if onProgress != nil {
		onProgress(100)
	}
	if err := writeArtifact(outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (stubStrategy) Container() string { return "mp4" }

func writeArtifact(path string) error {
	return os.WriteFile(path, []byte("encoded"), 0o644)
}

func newTestServer(t *testing.T, opts Options) (*Server, http.Handler) {
	t.Helper()

	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	if opts.MaxUploadSize == 0 {
		opts.MaxUploadSize = 10 << 20
	}
	opts.Logger = zerolog.Nop()

	server := NewServer(opts)
	t.Cleanup(func() { server.Close() })
	return server, server.Router()
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// seedVideo plants a 30s source directly in the store so handler tests
// do not depend on the upload path
func seedVideo(t *testing.T, s *Server, sessionID string) {
	t.Helper()

	err := s.store.UpdateSession(context.Background(), sessionID, func(sess *store.Session) error {
		_, err := sess.Project.AddVideo(project.SourceDescriptor{
			Name:     "source.mp4",
			Path:     "/media/source.mp4",
			MimeType: "video/mp4",
			Duration: 30,
		})
		return err
	})
	require.NoError(t, err)
}

func multipartBody(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestCreateSessionAndGetProject(t *testing.T) {
	_, router := newTestServer(t, Options{})

	sessionID := createSession(t, router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/project", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var p project.Project
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Empty(t, p.Videos)
	assert.Empty(t, p.Timeline)
}

func TestGetProject_UnknownSession(t *testing.T) {
	_, router := newTestServer(t, Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/project", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteSession(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sessionID+"/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/project", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUploadVideo(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	body, contentType := multipartBody(t, "my clip!.mp4", "video/mp4", "fake video bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/videos", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Video)
	assert.Equal(t, "my_clip_.mp4", resp.Video.Name)
	assert.Equal(t, 1, resp.Project.VideoCount)
	// Upload auto-creates one clip and one timeline entry
	assert.Equal(t, 1, resp.Project.TimelineClipCount)
}

func TestUploadVideo_RejectedType(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	body, contentType := multipartBody(t, "notes.txt", "text/plain", "not a video")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/videos", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_media_type")
}

func TestUploadVideo_TooLarge(t *testing.T) {
	_, router := newTestServer(t, Options{MaxUploadSize: 64})
	sessionID := createSession(t, router)

	body, contentType := multipartBody(t, "big.mp4", "video/mp4", strings.Repeat("x", 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/videos", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestUploadVideo_MissingBody(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/videos",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "video_url")
}

func TestDirectAction_Trim(t *testing.T) {
	server, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)
	seedVideo(t, server, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/actions",
		strings.NewReader(`{"type":"trimClip","clipIndex":0,"newStartTime":2,"newEndTime":8}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	require.Len(t, resp.Project.Timeline, 1)
	assert.Equal(t, 2.0, resp.Project.Timeline[0].StartTime)
	assert.Equal(t, 8.0, resp.Project.Timeline[0].EndTime)
}

func TestDirectAction_IgnoredOutOfRange(t *testing.T) {
	server, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)
	seedVideo(t, server, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/actions",
		strings.NewReader(`{"type":"removeClip","clipIndex":5}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Applied)
	assert.NotEmpty(t, resp.Reason)
	// Project is untouched
	assert.Equal(t, 1, resp.Project.TimelineClipCount)
}

func TestDirectAction_UnknownType(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/actions",
		strings.NewReader(`{"type":"explodeClip"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPrompt_AppliesProposedAction(t *testing.T) {
	chat := &stubChat{reply: `{"message":"cleared","understood":true,"projectAction":{"type":"clearTimeline"}}`}
	server, router := newTestServer(t, Options{
		Bridge: assistant.NewBridge(chat, zerolog.Nop()),
	})
	sessionID := createSession(t, router)
	seedVideo(t, server, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/prompt",
		strings.NewReader(`{"prompt":"remove everything from the timeline"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp PromptResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cleared", resp.Message)
	assert.True(t, resp.Understood)
	assert.True(t, resp.Applied)
	assert.Equal(t, 0, resp.Project.TimelineClipCount)

	// The exchange lands in session history for later context
	session, err := server.store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, session.History, 1)
	assert.Equal(t, "cleared", session.History[0].Response)
}

func TestPrompt_EffectsOnlyReply(t *testing.T) {
	chat := &stubChat{reply: `{"message":"brighter","understood":true,"effects":{"brightness":0.3}}`}
	server, router := newTestServer(t, Options{
		Bridge: assistant.NewBridge(chat, zerolog.Nop()),
	})
	sessionID := createSession(t, router)
	seedVideo(t, server, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/prompt",
		strings.NewReader(`{"prompt":"make it brighter"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PromptResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	require.NotNil(t, resp.Project.GlobalEffects.Brightness)
	assert.Equal(t, 0.3, *resp.Project.GlobalEffects.Brightness)
}

func TestPrompt_NoBridgeConfigured(t *testing.T) {
	_, router := newTestServer(t, Options{})
	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/prompt",
		strings.NewReader(`{"prompt":"anything"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPrompt_EmptyPrompt(t *testing.T) {
	_, router := newTestServer(t, Options{
		Bridge: assistant.NewBridge(&stubChat{reply: "{}"}, zerolog.Nop()),
	})
	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/prompt",
		strings.NewReader(`{"prompt":"  "}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportFlow(t *testing.T) {
	outputDir := t.TempDir()
	server, router := newTestServer(t, Options{
		Exporter: render.NewExporter(stubStrategy{}, outputDir, zerolog.Nop()),
	})
	sessionID := createSession(t, router)
	seedVideo(t, server, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/export",
		strings.NewReader(`{"format":"youtube"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var accepted ExportResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	job := waitForJob(t, router, accepted.JobID)
	assert.Equal(t, store.JobCompleted, job.Status)
	assert.Equal(t, 100.0, job.Progress)
	assert.Contains(t, job.OutputPath, "edited_youtube_")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+accepted.JobID+"/download", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "encoded", rr.Body.String())
}

func TestExport_EmptyTimeline(t *testing.T) {
	_, router := newTestServer(t, Options{
		Exporter: render.NewExporter(stubStrategy{}, t.TempDir(), zerolog.Nop()),
	})
	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/export", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "empty_timeline")
}

func TestDownload_NotCompleted(t *testing.T) {
	server, router := newTestServer(t, Options{})
	job := &store.ExportJob{ID: "j1", SessionID: "s1", Status: store.JobProcessing}
	require.NoError(t, server.store.CreateJob(context.Background(), job))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/j1/download", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	_, router := newTestServer(t, Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}

func TestCORS_AllowedOrigin(t *testing.T) {
	_, router := newTestServer(t, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	_, router := newTestServer(t, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"my clip!.mp4", "my_clip_.mp4"},
		{"../../etc/passwd", "passwd"},
		{"über video.mov", "_ber_video.mov"},
		{"", "upload"},
		{"...", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}

func waitForJob(t *testing.T, router http.Handler, jobID string) *store.ExportJob {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var job store.ExportJob
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
		if job.Status.Terminal() {
			return &job
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("job did not reach a terminal state")
	return nil
}

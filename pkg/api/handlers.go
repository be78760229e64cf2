package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge/pkg/actions"
	"github.com/clipforge/clipforge/pkg/assistant"
	"github.com/clipforge/clipforge/pkg/effects"
	"github.com/clipforge/clipforge/pkg/project"
	"github.com/clipforge/clipforge/pkg/store"
)

// maxActionBody caps JSON request bodies; uploads have their own limit
const maxActionBody = 1 << 20

// ErrorResponse is the error body shape shared by every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SessionResponse is returned on session creation
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectResponse pairs a result with the updated project summary
type ProjectResponse struct {
	Applied bool                 `json:"applied"`
	Reason  string               `json:"reason,omitempty"`
	Project project.Context      `json:"project"`
	Video   *project.VideoSource `json:"video,omitempty"`
}

// PromptResponse is the assistant round-trip result
type PromptResponse struct {
	Message    string          `json:"message"`
	Understood bool            `json:"understood"`
	Applied    bool            `json:"applied"`
	Project    project.Context `json:"project"`
}

// SubtitlesResponse returns the regenerated track
type SubtitlesResponse struct {
	Track *project.SubtitleTrack `json:"track"`
}

// ExportResponse acknowledges an accepted export job
type ExportResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleCreateSession handles POST /api/v1/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := &store.Session{
		ID:      uuid.New().String(),
		Project: project.New(),
	}

	if err := s.store.CreateSession(r.Context(), session); err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to create session: %v", err))
		return
	}

	s.sendJSON(w, http.StatusCreated, SessionResponse{
		SessionID: session.ID,
		CreatedAt: session.Created,
	})
}

// handleDeleteSession handles DELETE /api/v1/sessions/{sessionID}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := s.store.DeleteSession(r.Context(), sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to delete session: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetProject handles GET /api/v1/sessions/{sessionID}/project
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.store.GetSession(r.Context(), sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get session: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, session.Project)
}

// addVideoRequest is the JSON alternative to a multipart upload
type addVideoRequest struct {
	VideoURL string `json:"video_url"`
}

// handleAddVideo handles POST /api/v1/sessions/{sessionID}/videos.
// The body is either a multipart upload with a "file" part or a JSON
// document naming a remote video_url.
func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
			return
		}
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get session: %v", err))
		return
	}

	var (
		desc project.SourceDescriptor
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		desc, err = s.receiveUpload(w, r)
	} else {
		desc, err = s.fetchRemote(r)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("Upload exceeds the %d byte limit", s.maxUploadSize))
			return
		}
		s.sendError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	if s.prober != nil {
		if info, probeErr := s.prober.Probe(ctx, desc.Path); probeErr == nil {
			desc.Duration = info.Duration
		} else {
			s.logger.Warn().Err(probeErr).Str("path", desc.Path).Msg("probe failed, duration unknown")
		}
	}

	var (
		source  *project.VideoSource
		summary project.Context
	)
	err = s.store.UpdateSession(ctx, sessionID, func(sess *store.Session) error {
		added, addErr := sess.Project.AddVideo(desc)
		if addErr != nil {
			return addErr
		}
		source = added
		summary = sess.Project.Summarize()
		return nil
	})
	if err != nil {
		os.Remove(desc.Path)
		var invalid *project.InvalidMediaError
		if errors.As(err, &invalid) {
			s.sendError(w, http.StatusBadRequest, "invalid_media_type", invalid.Error())
			return
		}
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to add video: %v", err))
		return
	}

	s.sendJSON(w, http.StatusCreated, ProjectResponse{
		Applied: true,
		Project: summary,
		Video:   source,
	})
}

// receiveUpload streams a multipart file part to the upload directory
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (project.SourceDescriptor, error) {
	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return project.SourceDescriptor{}, fmt.Errorf("malformed multipart body: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return project.SourceDescriptor{}, fmt.Errorf("multipart body has no file part")
		}
		if err != nil {
			return project.SourceDescriptor{}, err
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		defer part.Close()

		name := sanitizeFilename(part.FileName())
		mimeType := partMimeType(part.Header.Get("Content-Type"), name)

		if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
			return project.SourceDescriptor{}, fmt.Errorf("failed to create upload dir: %w", err)
		}

		// A random prefix keeps repeated uploads of the same file apart
		localPath := filepath.Join(s.uploadDir, uuid.New().String()[:8]+"_"+name)
		out, err := os.Create(localPath)
		if err != nil {
			return project.SourceDescriptor{}, fmt.Errorf("failed to create file: %w", err)
		}

		if _, err := io.Copy(out, part); err != nil {
			out.Close()
			os.Remove(localPath)
			return project.SourceDescriptor{}, err
		}
		if err := out.Close(); err != nil {
			os.Remove(localPath)
			return project.SourceDescriptor{}, err
		}

		return project.SourceDescriptor{
			Name:     name,
			Path:     localPath,
			MimeType: mimeType,
		}, nil
	}
}

// fetchRemote downloads a video_url through the storage fetcher
func (s *Server) fetchRemote(r *http.Request) (project.SourceDescriptor, error) {
	var req addVideoRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&req); err != nil {
		return project.SourceDescriptor{}, fmt.Errorf("invalid request body: %w", err)
	}
	if req.VideoURL == "" {
		return project.SourceDescriptor{}, fmt.Errorf("either a multipart file or video_url is required")
	}
	if s.fetcher == nil {
		return project.SourceDescriptor{}, fmt.Errorf("remote video ingest is not configured")
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return project.SourceDescriptor{}, fmt.Errorf("failed to create upload dir: %w", err)
	}

	localPath, err := s.fetcher.Fetch(r.Context(), req.VideoURL, s.uploadDir)
	if err != nil {
		return project.SourceDescriptor{}, err
	}

	name := sanitizeFilename(filepath.Base(localPath))
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	return project.SourceDescriptor{
		Name:     name,
		Path:     localPath,
		URL:      req.VideoURL,
		MimeType: mimeType,
	}, nil
}

// promptRequest is a natural-language edit request, optionally with
// base64 frame snapshots for visual context
type promptRequest struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
}

// handlePrompt handles POST /api/v1/sessions/{sessionID}/prompt
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		s.sendError(w, http.StatusServiceUnavailable, "assistant_unavailable", "Assistant is not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.sendError(w, http.StatusBadRequest, "missing_prompt", "Prompt is required")
		return
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get session: %v", err))
		return
	}

	reply, err := s.bridge.Propose(ctx, req.Prompt, req.Images, session.Project.Summarize(), session.History)
	if err != nil {
		if errors.Is(err, assistant.ErrNotConfigured) {
			s.sendError(w, http.StatusServiceUnavailable, "assistant_unavailable", "Assistant is not configured")
			return
		}
		s.sendError(w, http.StatusBadGateway, "assistant_error", fmt.Sprintf("Assistant request failed: %v", err))
		return
	}

	var (
		summary project.Context
		applied bool
	)
	err = s.store.UpdateSession(ctx, sessionID, func(sess *store.Session) error {
		next := sess.Project

		if reply.Effects != nil {
			merged, outcome := actions.Apply(next, actions.Action{
				Type:    actions.KindSetGlobalEffects,
				Effects: reply.Effects,
			})
			if outcome.Applied {
				next = merged
				applied = true
			}
		}
		if reply.Action != nil {
			merged, outcome := actions.Apply(next, *reply.Action)
			if outcome.Applied {
				next = merged
				applied = true
			}
		}

		sess.Project = next
		sess.History = append(sess.History, assistant.Exchange{
			Prompt:   req.Prompt,
			Response: reply.Message,
		})
		summary = next.Summarize()
		return nil
	})
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to update session: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, PromptResponse{
		Message:    reply.Message,
		Understood: reply.Understood,
		Applied:    applied,
		Project:    summary,
	})
}

// handleAction handles POST /api/v1/sessions/{sessionID}/actions: the
// body is one typed edit action applied directly, no assistant involved.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Failed to read body: %v", err))
		return
	}

	action, err := actions.Parse(body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_action", err.Error())
		return
	}

	var (
		summary project.Context
		outcome actions.Outcome
	)
	err = s.store.UpdateSession(ctx, sessionID, func(sess *store.Session) error {
		next, res := actions.Apply(sess.Project, action)
		outcome = res
		if res.Applied {
			sess.Project = next
		}
		summary = sess.Project.Summarize()
		return nil
	})
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to update session: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, ProjectResponse{
		Applied: outcome.Applied,
		Reason:  outcome.Reason,
		Project: summary,
	})
}

// subtitlesRequest selects the source to transcribe; an empty video_id
// means the first uploaded source
type subtitlesRequest struct {
	VideoID  string `json:"video_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// handleSubtitles handles POST /api/v1/sessions/{sessionID}/subtitles
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if s.subtitles == nil {
		s.sendError(w, http.StatusServiceUnavailable, "subtitles_unavailable", "Subtitle generation is not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	var req subtitlesRequest
	if r.Body != nil {
		// The body is optional; decode errors on an empty body are fine
		_ = json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&req)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get session: %v", err))
		return
	}

	source, err := selectSource(session.Project, req.VideoID)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "no_source", err.Error())
		return
	}

	segments, err := s.subtitles.Generate(ctx, source.Path, req.Language)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "subtitle_error", err.Error())
		return
	}

	var track *project.SubtitleTrack
	err = s.store.UpdateSession(ctx, sessionID, func(sess *store.Session) error {
		style := project.DefaultSubtitleStyle()
		if sess.Project.Subtitles != nil {
			style = sess.Project.Subtitles.Style
		}
		sess.Project.Subtitles = &project.SubtitleTrack{
			Segments: segments,
			Style:    style,
		}
		track = sess.Project.Subtitles
		return nil
	})
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to update session: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, SubtitlesResponse{Track: track})
}

// exportRequest names the target format preset
type exportRequest struct {
	Format string `json:"format,omitempty"`
}

// handleExport handles POST /api/v1/sessions/{sessionID}/export by
// registering an asynchronous job
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.sendError(w, http.StatusServiceUnavailable, "export_unavailable", "Export is not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	var req exportRequest
	if r.Body != nil {
		_ = json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&req)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("Session %s not found", sessionID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get session: %v", err))
		return
	}
	if len(session.Project.Timeline) == 0 {
		s.sendError(w, http.StatusBadRequest, "empty_timeline", "Timeline has no clips to export")
		return
	}

	// Unknown preset names fall back to the default format
	format := effects.LookupFormat(req.Format).Name

	job := &store.ExportJob{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Format:    format,
		Status:    store.JobPending,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to create job: %v", err))
		return
	}

	// The job outlives the request; the snapshot keeps later session
	// edits from racing the render.
	go s.runExport(context.Background(), job.ID, session.Project, format)

	s.sendJSON(w, http.StatusAccepted, ExportResponse{
		JobID:  job.ID,
		Status: string(store.JobPending),
	})
}

// runExport drives one export job to a terminal state
func (s *Server) runExport(ctx context.Context, jobID string, p *project.Project, format string) {
	s.updateJob(ctx, jobID, func(j *store.ExportJob) {
		j.Status = store.JobProcessing
	})

	outputPath, err := s.exporter.Export(ctx, p, format, func(percent float64) {
		s.updateJob(ctx, jobID, func(j *store.ExportJob) {
			j.Progress = percent
		})
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("export failed")
		s.updateJob(ctx, jobID, func(j *store.ExportJob) {
			j.Status = store.JobFailed
			j.Error = err.Error()
		})
		return
	}

	s.updateJob(ctx, jobID, func(j *store.ExportJob) {
		j.Status = store.JobCompleted
		j.Progress = 100
		j.OutputPath = outputPath
	})
}

func (s *Server) updateJob(ctx context.Context, jobID string, mutate func(*store.ExportJob)) {
	if err := s.store.UpdateJob(ctx, jobID, mutate); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("job update failed")
	}
}

// handleGetJob handles GET /api/v1/jobs/{jobID}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		s.sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}

	s.sendJSON(w, http.StatusOK, job)
}

// handleDownload handles GET /api/v1/jobs/{jobID}/download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrJobNotFound) {
		s.sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return
	}
	if job.Status != store.JobCompleted || job.OutputPath == "" {
		s.sendError(w, http.StatusConflict, "job_not_completed", fmt.Sprintf("Job %s is %s", jobID, job.Status))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputPath)))
	http.ServeFile(w, r, job.OutputPath)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// Helper methods

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

// selectSource picks the transcription source: an explicit video id, or
// the first uploaded source
func selectSource(p *project.Project, videoID string) (*project.VideoSource, error) {
	if videoID != "" {
		source, ok := p.VideoByID(videoID)
		if !ok {
			return nil, fmt.Errorf("unknown video %s", videoID)
		}
		return source, nil
	}
	if len(p.Videos) == 0 {
		return nil, fmt.Errorf("project has no videos")
	}
	return &p.Videos[0], nil
}

// unsafeFilenameChars matches everything outside the portable set
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename reduces a client-supplied name to a safe basename
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if len(name) > 255 {
		name = name[:255]
	}
	if name == "" {
		name = "upload"
	}
	return name
}

// partMimeType resolves the effective MIME type of an upload part
func partMimeType(header, filename string) string {
	if header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return header
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tukey-analytics/tukey/internal/apperrors"
	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/hooks"
	"github.com/tukey-analytics/tukey/internal/insights"
	"github.com/tukey-analytics/tukey/internal/logger"
	"github.com/tukey-analytics/tukey/internal/pos"
	"github.com/tukey-analytics/tukey/internal/session"
	"github.com/tukey-analytics/tukey/internal/types"
)

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	IsAdmin       bool           `json:"is_admin"`
	User          *types.Session `json:"user,omitempty"`
}

type embedResponse struct {
	DashboardID string `json:"dashboard_id"`
	Token       string `json:"token"`
	URL         string `json:"url"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type uploadResponse struct {
	FileName  string              `json:"file_name"`
	FileType  pos.FileType        `json:"file_type"`
	Size      int64               `json:"size"`
	HumanSize string              `json:"human_size"`
	Message   string              `json:"message"`
	Result    *types.UploadResult `json:"result"`
}

func (s *Server) currentSession() sessionResponse {
	res := sessionResponse{
		Authenticated: s.session.IsAuthenticated(),
		IsAdmin:       s.session.IsAdmin(),
	}
	if sess, ok := s.session.Current(); ok {
		res.User = &sess
	}
	return res
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.health.Fetch(r.Context())
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, h)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.currentSession())
}

// handleLogin accepts a JSON body or a form with email and password fields
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds hooks.Credentials

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Request body is not valid JSON.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Request body is not a valid form.")
			return
		}
		creds.Email = r.PostForm.Get("email")
		creds.Password = r.PostForm.Get("password")
	}

	if creds.Email == "" || creds.Password == "" {
		RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "Email and password are required.")
		return
	}

	// a different user may be signing in
	s.resetUserData()

	result := s.session.Login(r.Context(), creds.Email, creds.Password)
	if !result.Success {
		RespondWithError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, result.Error)
		return
	}

	logger.ContextWithLogAttrs(r.Context(), slog.String("email", creds.Email))
	RespondWithJSON(w, http.StatusOK, s.currentSession())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.resetUserData()
	if err := s.session.Logout(r.Context()); err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternalError, "Could not clear the stored session.")
		return
	}
	RespondWithJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := s.dashboards.Fetch(r.Context())
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}
	if dashboards == nil {
		dashboards = []types.Dashboard{}
	}
	RespondWithJSON(w, http.StatusOK, dashboards)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tok, err := s.embedToken.Mutate(r.Context(), id)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	embedURL, err := client.EmbedURL(tok, s.config.DashboardServerURL)
	if err != nil {
		RespondWithError(w, r, http.StatusBadGateway, apperrors.ErrCodeUpstreamError, client.ErrorMessage(err))
		return
	}

	RespondWithJSON(w, http.StatusOK, embedResponse{
		DashboardID: id,
		Token:       tok.Token,
		URL:         embedURL,
		ExpiresAt:   tok.ExpiresAt,
	})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var q types.AIQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Request body is not valid JSON.")
		return
	}

	if err := insights.ValidateQuery(q); err != nil {
		var qerr *insights.QueryError
		if errors.As(err, &qerr) {
			RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, qerr.Message)
			return
		}
		RespondWithError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternalError, "Could not validate the query.")
		return
	}

	d, err := s.decision.Mutate(r.Context(), q)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	in := insights.FromDecision(q, d)
	s.history.Add(in)
	RespondWithJSON(w, http.StatusOK, in)
}

func (s *Server) handleDecisionHistory(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.history.List())
}

// handleUpload expects a multipart form with the file in the "file" field
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.ContextSession(r.Context())
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, "Please log in to continue.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, pos.MaxFileSize+maxUploadMemory)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(w, r, http.StatusRequestEntityTooLarge, apperrors.ErrCodeInvalidRequest, pos.ErrTooLarge.Message)
			return
		}
		RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "Request body is not a valid multipart form.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "No file was uploaded.")
		return
	}
	defer file.Close()

	f, err := pos.Check(sess, header.Filename, header.Size)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, pos.ErrNotAdmin):
			status = http.StatusForbidden
		case errors.Is(err, pos.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge
		}
		RespondWithError(w, r, status, apperrors.ErrCodeInvalidRequest, err.Error())
		return
	}

	logger.ContextWithLogAttrs(r.Context(),
		slog.String("file_name", f.Name),
		slog.Int64("file_size", f.Size),
	)

	result, err := s.upload.Mutate(r.Context(), hooks.POSFile{Name: f.Name, Body: file})
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	// the dashboards may now include the new data
	s.dashboards.Invalidate()

	RespondWithJSON(w, http.StatusOK, uploadResponse{
		FileName:  f.Name,
		FileType:  f.Type,
		Size:      f.Size,
		HumanSize: f.HumanSize(),
		Message:   pos.Summary(result),
		Result:    result,
	})
}

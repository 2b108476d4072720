package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mixmentor/mixmentor/pkg/audio"
	"github.com/mixmentor/mixmentor/pkg/chat"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
)

type analyzeRequest struct {
	ConversationID int64  `json:"conversation_id"`
	AudioURL       string `json:"audio_url"`
	ReferenceURL   string `json:"reference_url,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req audio.UploadRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.FileName, "file_name") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.DataBase64, "data_base64") {
		return
	}

	file, err := s.deps.Audio.Upload(r.Context(), user.ID, req)
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
		if errors.Is(err, audio.ErrFileTooLarge) || errors.Is(err, audio.ErrUnsupportedType) || errors.Is(err, audio.ErrInvalidPayload) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.deps.Logger.WithError(err).Error("failed to store audio upload")
		httputil.WriteInternalError(w, errors.New("failed to store upload"))
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.UploadsTotal.WithLabelValues("ok").Inc()
		s.deps.Metrics.UploadSizeBytes.Observe(float64(file.SizeBytes))
	}
	httputil.WriteCreated(w, file)
}

// handleListAudio degrades to an empty list when the store is unreadable
func (s *Server) handleListAudio(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	files, err := s.deps.Audio.ListByUser(r.Context(), user.ID)
	if err != nil {
		s.deps.Logger.WithError(err).Error("failed to list audio files")
		files = []*audio.File{}
	}
	if files == nil {
		files = []*audio.File{}
	}
	httputil.WriteSuccess(w, files)
}

// handleAnalyzeAudio runs an analysis prompt through the model. The
// entitlement gate lives in the chat service; a rejection surfaces here as
// a limit error carrying the upgrade prompt.
func (s *Server) handleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req analyzeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ConversationID <= 0 {
		httputil.WriteBadRequest(w, "conversation_id is required")
		return
	}
	audioURL := strings.TrimSpace(req.AudioURL)
	if !httputil.RequireNonEmpty(w, audioURL, "audio_url") {
		return
	}

	reply, err := s.deps.Chat.AnalyzeAudio(r.Context(), user.ID, user.Tier, chat.AnalyzeRequest{
		ConversationID: req.ConversationID,
		AudioURL:       audioURL,
		ReferenceURL:   strings.TrimSpace(req.ReferenceURL),
		Prompt:         strings.TrimSpace(req.Prompt),
	})
	if err != nil {
		s.writeChatError(w, err, "failed to analyze audio")
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.AnalysesTotal.WithLabelValues("audioAnalysis", string(user.Tier)).Inc()
	}
	httputil.WriteCreated(w, reply)
}

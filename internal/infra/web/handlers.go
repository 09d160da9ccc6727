package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/model"
	"blueprint-chat/internal/infra/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to the HTTP contract: 400/401/404/500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ----- chat sessions -----

type initSessionRequest struct {
	DocumentID string `json:"document_id"`
}

type initSessionResponse struct {
	SessionID       string `json:"session_id"`
	ConversationRef string `json:"conversation_ref"`
	IsNew           bool   `json:"is_new"`
}

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())

	var req initSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "document_id is required"})
		return
	}

	sess, isNew, err := s.sessionUC.InitSession(r.Context(), req.DocumentID, ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initSessionResponse{
		SessionID:       sess.ID,
		ConversationRef: sess.ConversationRef,
		IsNew:           isNew,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	sessions, err := s.sessionUC.ListSessions(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.ChatSession `json:"data"`
	}{Data: sessions})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")
	ctx := logging.WithSessID(r.Context(), sessionID)

	msgs, err := s.sessionUC.History(ctx, sessionID, ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, struct {
		Messages []model.Message `json:"messages"`
	}{Messages: msgs})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ctx := logging.WithSessID(r.Context(), sessionID)
	reply, err := s.sessionUC.SendMessage(ctx, sessionID, ownerID, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Reply model.Message `json:"reply"`
	}{Reply: reply})
}

func (s *Server) handleCleanupSession(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	report, err := s.sessionUC.CleanupSession(r.Context(), sessionID, ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// per-resource outcomes stay internal; the contract is a boolean
	s.log.Info().
		Str("session_id", report.SessionID).
		Bool("conversation_deleted", report.ConversationDeleted).
		Bool("vector_store_deleted", report.VectorStoreDeleted).
		Bool("file_deleted", report.FileDeleted).
		Msg("session cleaned up")
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

// ----- documents -----

type registerDocumentRequest struct {
	Name        string `json:"name"`
	SourceURL   string `json:"source_url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (s *Server) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())

	var req registerDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.SourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and source_url are required"})
		return
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        req.Name,
		SourceURL:   req.SourceURL,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		CreatedAt:   time.Now(),
	}
	if err := s.docs.Save(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerFromContext(r.Context())
	docs, err := s.docs.ListByOwner(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Document `json:"data"`
	}{Data: docs})
}

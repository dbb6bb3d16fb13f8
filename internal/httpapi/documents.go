package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
)

// DocumentStore is the slice of the database client the handler needs.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *db.DocumentRow) error
	DeleteDocument(ctx context.Context, studyID, documentID string) error
}

// DocumentsHandler serves document registration and deletion. Every mutation
// invalidates the study's cached snapshot so citation enrichment sees the
// change on the next render.
type DocumentsHandler struct {
	store  DocumentStore
	source *documents.Source
	logger *zap.Logger
}

func NewDocumentsHandler(store DocumentStore, source *documents.Source, logger *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{store: store, source: source, logger: logger}
}

// RegisterRoutes registers document routes on the provided mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/studies/{id}/documents", h.handleRegister)
	mux.HandleFunc("DELETE /api/studies/{id}/documents/{docID}", h.handleDelete)
}

type registerDocumentRequest struct {
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name"`
	Status   string `json:"status,omitempty"`
}

// handleRegister records an uploaded document for a study.
func (h *DocumentsHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")

	var req registerDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_name required"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = "processing"
	}

	doc := &db.DocumentRow{
		ID:        req.ID,
		StudyID:   studyID,
		FileName:  req.FileName,
		Status:    req.Status,
		CreatedAt: time.Now(),
	}
	if err := h.store.SaveDocument(r.Context(), doc); err != nil {
		h.writeError(w, studyID, err)
		return
	}
	h.source.Invalidate(r.Context(), studyID)

	writeJSON(w, http.StatusCreated, doc)
}

// handleDelete removes a document from a study.
func (h *DocumentsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	documentID := r.PathValue("docID")

	if err := h.store.DeleteDocument(r.Context(), studyID, documentID); err != nil {
		h.writeError(w, studyID, err)
		return
	}
	h.source.Invalidate(r.Context(), studyID)

	h.logger.Info("Document deleted",
		zap.String("study_id", studyID),
		zap.String("document_id", documentID))
	writeJSON(w, http.StatusOK, map[string]string{
		"study_id":    studyID,
		"document_id": documentID,
	})
}

func (h *DocumentsHandler) writeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.logger.Error("Document request failed", zap.String("id", id), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

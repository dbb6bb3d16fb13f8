package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/chat"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
)

// ChatHandler serves rendered messages and citation maintenance endpoints.
type ChatHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers chat routes on the provided mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/messages/{id}", h.handleGetMessage)
	mux.HandleFunc("POST /api/messages/{id}/citations/recompute", h.handleRecompute)
	mux.HandleFunc("GET /api/studies/{id}/messages", h.handleHistory)
}

// handleGetMessage returns one message rendered to HTML with enriched
// citations.
func (h *ChatHandler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("id")
	rendered, err := h.svc.Render(r.Context(), messageID)
	if err != nil {
		h.writeError(w, messageID, err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

// handleRecompute rebuilds a message's citation map from its stored tool
// calls.
func (h *ChatHandler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("id")
	cmap, err := h.svc.Recompute(r.Context(), messageID)
	if err != nil {
		h.writeError(w, messageID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message_id": messageID,
		"citations":  cmap,
	})
}

// handleHistory returns every rendered message of a study.
func (h *ChatHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	messages, err := h.svc.History(r.Context(), studyID)
	if err != nil {
		h.writeError(w, studyID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"study_id": studyID,
		"messages": messages,
	})
}

func (h *ChatHandler) writeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.logger.Error("Chat request failed", zap.String("id", id), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package chat orchestrates the citation pipeline around an assistant
// generation: provisional citations while tokens stream, validated citations
// once the message completes, and enrichment against the live document set at
// render time.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/citations"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
	"github.com/tanmvo/skate-ai-2-sub002/internal/markdown"
	"github.com/tanmvo/skate-ai-2-sub002/internal/replay"
	"github.com/tanmvo/skate-ai-2-sub002/internal/streaming"
	"github.com/tanmvo/skate-ai-2-sub002/internal/tracing"
)

// Store is the slice of the database client the service needs.
type Store interface {
	QueueWrite(writeType db.WriteType, data interface{}, callback func(error))
	GetChatMessage(ctx context.Context, messageID string) (*db.ChatMessage, error)
	ListChatMessages(ctx context.Context, studyID string) ([]db.ChatMessage, error)
	ListToolCalls(ctx context.Context, messageID string) ([]db.ToolCallRecord, error)
}

// generation is the in-flight state of one assistant message.
type generation struct {
	mu          sync.Mutex
	studyID     string
	content     strings.Builder
	provisional citations.Map
	toolCalls   []db.ToolCallRecord
}

// renderState memoizes per-message derivations across render ticks.
type renderState struct {
	enricher citations.Enricher
	lookups  citations.LookupBuilder
}

// Service drives the citation pipeline for assistant messages.
type Service struct {
	store    Store
	replayer *replay.Replayer
	docs     *documents.Source
	stream   *streaming.Manager
	renderer *markdown.Renderer
	logger   *zap.Logger

	// streamRetention is how long a finished message's event history stays
	// replayable for reconnecting subscribers before it is dropped.
	streamRetention time.Duration

	mu          sync.Mutex
	generations map[string]*generation
	renders     map[string]*renderState
}

const (
	maxRenderStates        = 512
	defaultStreamRetention = 5 * time.Minute
)

// NewService wires the pipeline stages together.
func NewService(store Store, replayer *replay.Replayer, docs *documents.Source, stream *streaming.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:           store,
		replayer:        replayer,
		docs:            docs,
		stream:          stream,
		renderer:        markdown.NewRenderer(),
		logger:          logger,
		streamRetention: defaultStreamRetention,
		generations:     make(map[string]*generation),
		renders:         make(map[string]*renderState),
	}
}

// StartGeneration registers a new in-flight assistant message and returns its
// ID.
func (s *Service) StartGeneration(studyID string) (string, error) {
	if studyID == "" {
		return "", fmt.Errorf("chat: study id required")
	}
	messageID := uuid.New().String()
	s.mu.Lock()
	s.generations[messageID] = &generation{studyID: studyID}
	s.mu.Unlock()
	return messageID, nil
}

func (s *Service) generation(messageID string) (*generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generations[messageID]
	if !ok {
		return nil, fmt.Errorf("chat: no active generation for message %s", messageID)
	}
	return g, nil
}

// AppendDelta ingests one streamed token chunk. It republishes the full
// provisional citation map whenever the partial text yields a different one;
// subscribers replace their copy wholesale rather than merging.
func (s *Service) AppendDelta(messageID, text string) error {
	g, err := s.generation(messageID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.content.WriteString(text)
	partial := g.content.String()
	next := citations.ParseStreamingCitations(partial)
	changed := !equalProvisional(g.provisional, next)
	if changed {
		g.provisional = next
	}
	studyID := g.studyID
	g.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{"text": text})
	s.stream.Publish(messageID, streaming.Event{
		StudyID: studyID,
		Type:    streaming.EventMessageDelta,
		Payload: payload,
	})

	if changed {
		raw, _ := json.Marshal(next)
		s.stream.Publish(messageID, streaming.Event{
			StudyID: studyID,
			Type:    streaming.EventCitationProvisional,
			Payload: raw,
		})
	}
	return nil
}

// RecordToolCall captures one search invocation made during the generation
// and queues it for persistence.
func (s *Service) RecordToolCall(messageID, toolCallID, toolName string, input, output json.RawMessage) error {
	g, err := s.generation(messageID)
	if err != nil {
		return err
	}

	rec := db.ToolCallRecord{
		ID:         uuid.New().String(),
		MessageID:  messageID,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Input:      types.JSONText(input),
		CreatedAt:  time.Now(),
	}
	if output != nil {
		rec.Output = types.NullJSONText{JSONText: types.JSONText(output), Valid: true}
	}

	g.mu.Lock()
	g.toolCalls = append(g.toolCalls, rec)
	g.mu.Unlock()

	s.store.QueueWrite(db.WriteTypeToolCall, &rec, nil)
	return nil
}

// Complete finishes a generation: persists the message, replays its searches
// to reconstruct the retrieved set, extracts the validated citation map, and
// publishes the final events. The provisional map subscribers hold is
// superseded entirely by citation.final.
func (s *Service) Complete(ctx context.Context, messageID string) (citations.Map, error) {
	g, err := s.generation(messageID)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "chat.complete")
	defer span.End()

	g.mu.Lock()
	content := g.content.String()
	studyID := g.studyID
	calls := append([]db.ToolCallRecord(nil), g.toolCalls...)
	g.mu.Unlock()

	results, err := s.replayer.Replay(ctx, studyID, calls)
	if err != nil {
		return nil, fmt.Errorf("chat: replay for message %s: %w", messageID, err)
	}

	cmap := citations.ExtractCitations(content, results)

	raw, err := cmap.Marshal()
	if err != nil {
		return nil, fmt.Errorf("chat: marshal citation map for %s: %w", messageID, err)
	}

	msg := &db.ChatMessage{
		ID:        messageID,
		StudyID:   studyID,
		Role:      "assistant",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if raw != nil {
		msg.CitationMap = types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
	}
	s.store.QueueWrite(db.WriteTypeChatMessage, msg, nil)

	finalPayload, _ := json.Marshal(cmap)
	s.stream.Publish(messageID, streaming.Event{
		StudyID: studyID,
		Type:    streaming.EventCitationFinal,
		Payload: finalPayload,
	})
	donePayload, _ := json.Marshal(map[string]int{"citation_count": len(cmap)})
	s.stream.Publish(messageID, streaming.Event{
		StudyID: studyID,
		Type:    streaming.EventMessageCompleted,
		Payload: donePayload,
	})

	s.mu.Lock()
	delete(s.generations, messageID)
	s.mu.Unlock()
	s.scheduleForget(messageID)

	s.logger.Info("Generation completed",
		zap.String("message_id", messageID),
		zap.String("study_id", studyID),
		zap.Int("citations", len(cmap)),
		zap.Int("tool_calls", len(calls)))

	return cmap, nil
}

// Fail aborts a generation and tells subscribers why.
func (s *Service) Fail(messageID string, cause error) {
	g, err := s.generation(messageID)
	if err != nil {
		return
	}
	g.mu.Lock()
	studyID := g.studyID
	g.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	s.stream.Publish(messageID, streaming.Event{
		StudyID: studyID,
		Type:    streaming.EventError,
		Payload: payload,
	})

	s.mu.Lock()
	delete(s.generations, messageID)
	s.mu.Unlock()
	s.scheduleForget(messageID)
}

// scheduleForget drops the stream history for a finished message after the
// retention window, so late SSE reconnects can still replay the final events.
func (s *Service) scheduleForget(messageID string) {
	time.AfterFunc(s.streamRetention, func() {
		s.stream.Forget(messageID)
	})
}

// Recompute rebuilds the citation map of an already persisted message from
// its stored tool calls and updates the persisted copy. Used when a map was
// lost or predates the pipeline.
func (s *Service) Recompute(ctx context.Context, messageID string) (citations.Map, error) {
	msg, err := s.store.GetChatMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	calls, err := s.store.ListToolCalls(ctx, messageID)
	if err != nil {
		return nil, err
	}
	results, err := s.replayer.Replay(ctx, msg.StudyID, calls)
	if err != nil {
		return nil, err
	}

	cmap := citations.ExtractCitations(msg.Content, results)
	raw, err := cmap.Marshal()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = []byte("{}")
	}
	s.store.QueueWrite(db.WriteTypeCitationMap, &db.CitationMapUpdate{MessageID: messageID, Raw: raw}, nil)
	return cmap, nil
}

// RenderedMessage is the display form of a persisted message.
type RenderedMessage struct {
	MessageID string                      `json:"message_id"`
	StudyID   string                      `json:"study_id"`
	Role      string                      `json:"role"`
	HTML      string                      `json:"html"`
	Citations citations.Map               `json:"citations,omitempty"`
	Statuses  map[string]citations.Status `json:"citation_statuses,omitempty"`
}

// Render loads a message and produces its display form: decoded citation
// map, enrichment against the live document snapshot, and markdown rewritten
// with numbered references. Messages whose map has not been computed yet
// render with markers left literal.
func (s *Service) Render(ctx context.Context, messageID string) (*RenderedMessage, error) {
	msg, err := s.store.GetChatMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if msg.CitationMap.Valid {
		raw = []byte(msg.CitationMap.JSONText)
	}
	cmap, err := citations.DecodeMap(raw)
	if err != nil {
		s.logger.Warn("Stored citation map failed validation, rendering without citations",
			zap.String("message_id", messageID),
			zap.Error(err))
	}

	state := s.renderStateFor(messageID)
	var statuses map[string]citations.Status
	var lookup citations.Lookup
	if len(cmap) > 0 {
		snap := s.docs.Snapshot(ctx, msg.StudyID)
		statuses = state.enricher.Enrich(cmap, snap)
		lookup = state.lookups.For(cmap)
	}

	html, err := s.renderer.Render(msg.Content, lookup)
	if err != nil {
		return nil, err
	}

	return &RenderedMessage{
		MessageID: msg.ID,
		StudyID:   msg.StudyID,
		Role:      msg.Role,
		HTML:      html,
		Citations: cmap,
		Statuses:  statuses,
	}, nil
}

// History renders every message of a study in order.
func (s *Service) History(ctx context.Context, studyID string) ([]*RenderedMessage, error) {
	msgs, err := s.store.ListChatMessages(ctx, studyID)
	if err != nil {
		return nil, err
	}
	out := make([]*RenderedMessage, 0, len(msgs))
	for _, m := range msgs {
		rm, err := s.Render(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, nil
}

func (s *Service) renderStateFor(messageID string) *renderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.renders[messageID]; ok {
		return st
	}
	if len(s.renders) >= maxRenderStates {
		for k := range s.renders {
			delete(s.renders, k)
			break
		}
	}
	st := &renderState{}
	s.renders[messageID] = st
	return st
}

// equalProvisional compares two provisional maps by name sequence. Numbers
// follow first appearance, so equal key sets with equal names mean no change.
func equalProvisional(a, b citations.Map) bool {
	if len(a) != len(b) {
		return false
	}
	for k, ea := range a {
		eb, ok := b[k]
		if !ok || ea.DocumentName != eb.DocumentName {
			return false
		}
	}
	return true
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SaveChatMessage inserts a chat message. The citation map column stays NULL
// until UpdateCitationMap runs.
func (c *Client) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, study_id, role, content, citation_map, created_at)
		VALUES (:id, :study_id, :role, :content, :citation_map, :created_at)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`

	if _, err := c.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("save chat message %s: %w", msg.ID, err)
	}
	return nil
}

// UpdateCitationMap attaches the computed citation map to a message. raw nil
// resets to NULL ("not yet computed"); an empty object {} is a valid value
// meaning zero citations.
func (c *Client) UpdateCitationMap(ctx context.Context, messageID string, raw []byte) error {
	var value interface{}
	if raw != nil {
		value = raw
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE chat_messages SET citation_map = $1 WHERE id = $2`, value, messageID)
	if err != nil {
		return fmt.Errorf("update citation map for %s: %w", messageID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update citation map for %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// GetChatMessage loads one message by ID.
func (c *Client) GetChatMessage(ctx context.Context, messageID string) (*ChatMessage, error) {
	var msg ChatMessage
	err := c.db.GetContext(ctx, &msg,
		`SELECT id, study_id, role, content, citation_map, created_at
		 FROM chat_messages WHERE id = $1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat message %s: %w", messageID, err)
	}
	return &msg, nil
}

// ListChatMessages returns a study's messages in chronological order.
func (c *Client) ListChatMessages(ctx context.Context, studyID string) ([]ChatMessage, error) {
	var msgs []ChatMessage
	err := c.db.SelectContext(ctx, &msgs,
		`SELECT id, study_id, role, content, citation_map, created_at
		 FROM chat_messages WHERE study_id = $1 ORDER BY created_at ASC`, studyID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages for study %s: %w", studyID, err)
	}
	return msgs, nil
}

// SaveToolCall persists one search invocation made during generation.
func (c *Client) SaveToolCall(ctx context.Context, tc *ToolCallRecord) error {
	query := `
		INSERT INTO tool_calls (id, message_id, tool_call_id, tool_name, input, output, created_at)
		VALUES (:id, :message_id, :tool_call_id, :tool_name, :input, :output, :created_at)
		ON CONFLICT (id) DO NOTHING`

	if _, err := c.db.NamedExecContext(ctx, query, tc); err != nil {
		return fmt.Errorf("save tool call %s: %w", tc.ToolCallID, err)
	}
	return nil
}

// ListToolCalls returns a message's persisted tool calls in invocation order;
// the replay stage consumes them to reconstruct the retrieved set.
func (c *Client) ListToolCalls(ctx context.Context, messageID string) ([]ToolCallRecord, error) {
	var calls []ToolCallRecord
	err := c.db.SelectContext(ctx, &calls,
		`SELECT id, message_id, tool_call_id, tool_name, input, output, created_at
		 FROM tool_calls WHERE message_id = $1 ORDER BY created_at ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list tool calls for message %s: %w", messageID, err)
	}
	return calls, nil
}

// ListDocuments returns the live documents for a study, the authoritative
// source behind citation enrichment.
func (c *Client) ListDocuments(ctx context.Context, studyID string) ([]DocumentRow, error) {
	var docs []DocumentRow
	err := c.db.SelectContext(ctx, &docs,
		`SELECT id, study_id, file_name, status, created_at
		 FROM documents WHERE study_id = $1 AND status != 'failed' ORDER BY created_at ASC`, studyID)
	if err != nil {
		return nil, fmt.Errorf("list documents for study %s: %w", studyID, err)
	}
	return docs, nil
}

// SaveDocument registers an uploaded document; re-saving updates its status.
func (c *Client) SaveDocument(ctx context.Context, doc *DocumentRow) error {
	query := `
		INSERT INTO documents (id, study_id, file_name, status, created_at)
		VALUES (:id, :study_id, :file_name, :status, :created_at)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, file_name = EXCLUDED.file_name`

	if _, err := c.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDocument removes a document from its study.
func (c *Client) DeleteDocument(ctx context.Context, studyID, documentID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND study_id = $2`, documentID, studyID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete document %s: %w", documentID, ErrNotFound)
	}
	return nil
}

// GetStudy loads one study by ID.
func (c *Client) GetStudy(ctx context.Context, studyID string) (*Study, error) {
	var study Study
	err := c.db.GetContext(ctx, &study,
		`SELECT id, user_id, name, created_at, updated_at FROM studies WHERE id = $1`, studyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get study %s: %w", studyID, err)
	}
	return &study, nil
}

package db

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Study is one research workspace owning documents and chat messages.
type Study struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentRow is the persisted form of an uploaded document.
type DocumentRow struct {
	ID        string    `db:"id" json:"id"`
	StudyID   string    `db:"study_id" json:"study_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	Status    string    `db:"status" json:"status"` // processing, ready, failed
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage is one message in a study conversation. CitationMap is NULL
// until the pipeline has computed it ("not yet computed") and {} once it ran
// and found zero citations; the two states must survive round-trips.
type ChatMessage struct {
	ID          string             `db:"id" json:"id"`
	StudyID     string             `db:"study_id" json:"study_id"`
	Role        string             `db:"role" json:"role"` // user, assistant
	Content     string             `db:"content" json:"content"`
	CitationMap types.NullJSONText `db:"citation_map" json:"citation_map"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}

// ToolCallRecord is one search invocation made during generation, persisted
// for deterministic replay. Output may hold only a human-readable summary;
// replay re-executes Input instead of trusting it.
type ToolCallRecord struct {
	ID         string             `db:"id" json:"id"`
	MessageID  string             `db:"message_id" json:"message_id"`
	ToolCallID string             `db:"tool_call_id" json:"tool_call_id"`
	ToolName   string             `db:"tool_name" json:"tool_name"`
	Input      types.JSONText     `db:"input" json:"input"`
	Output     types.NullJSONText `db:"output" json:"output"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
}

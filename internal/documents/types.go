package documents

// State is the lifecycle of a study's live document snapshot. Consumers treat
// a loading snapshot optimistically and a ready one as authoritative; the
// transition is one-way per refresh.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Document is one live document in a study, as seen by the existence source.
type Document struct {
	ID       string `json:"id" db:"id"`
	FileName string `json:"fileName" db:"file_name"`
}

// Snapshot is the point-in-time view of a study's documents handed to the
// citation enrichment layer. Documents is meaningful only when State is
// StateReady.
type Snapshot struct {
	StudyID   string
	State     State
	Documents []Document
}

// Has reports whether the snapshot contains the given document ID. Only valid
// for ready snapshots.
func (s Snapshot) Has(documentID string) bool {
	for _, d := range s.Documents {
		if d.ID == documentID {
			return true
		}
	}
	return false
}

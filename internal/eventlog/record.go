// Package eventlog appends one structured audit record per request to a
// newline-delimited JSON file. Records are write-only: nothing is ever
// updated or deleted after the append.
package eventlog

// ChunkRecord captures one retrieved chunk for later recall analysis.
type ChunkRecord struct {
	ID      string   `json:"id"`
	Score   *float64 `json:"score"`
	Source  string   `json:"source"`
	Section string   `json:"section"`
	Content string   `json:"content"`
}

// Record is the audit trail entry for a single request. Timestamp is
// assigned at write time, in UTC ISO-8601.
type Record struct {
	Query           string        `json:"query"`
	UserID          string        `json:"user_id"`
	QueryType       string        `json:"query_type"`
	RetrievedChunks []ChunkRecord `json:"retrieved_chunks"`
	FinalAnswer     string        `json:"final_answer"`
	Timestamp       string        `json:"timestamp,omitempty"`
}

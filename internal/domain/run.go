package domain

import "time"

// RunRecord is one appended row per run-scheduler invocation that actually
// executed a crawl. The latest record (by RunStart) gates the next invocation.
type RunRecord struct {
	ID           string    `db:"id"            json:"id"`
	RunStart     time.Time `db:"run_start"     json:"run_start"`
	RunEnd       time.Time `db:"run_end"       json:"run_end"`
	NextRunAt    time.Time `db:"next_run_at"   json:"next_run_at"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
}

// Failed reports whether the recorded run terminated abnormally.
func (r *RunRecord) Failed() bool {
	return r.ErrorMessage != nil && *r.ErrorMessage != ""
}

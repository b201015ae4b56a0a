package model

// FailedCandidate records one candidate that could not be processed,
// with enough context to retry manually.
type FailedCandidate struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Stage   string `json:"stage"`
	Cause   string `json:"cause"`
}

// BatchResult summarizes one orchestrator run. A batch always
// completes; per-candidate outcomes land in exactly one bucket.
type BatchResult struct {
	Accepted   []Record          `json:"accepted"`
	Duplicates []Candidate       `json:"duplicates"`
	Failed     []FailedCandidate `json:"failed"`
}

// Counts returns the bucket sizes in accepted, duplicate, failed order.
func (r *BatchResult) Counts() (accepted, duplicates, failed int) {
	return len(r.Accepted), len(r.Duplicates), len(r.Failed)
}

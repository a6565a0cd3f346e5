package domain

// LoadResult summarizes one loader run.
type LoadResult struct {
	Entity    Entity    `json:"entity"`
	StateCode StateCode `json:"stateCode"`
	Records   int       `json:"records"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Deleted   int64     `json:"deleted"`
	// Orphaned lists rows present in the store but absent from the batch that
	// were reported rather than deleted.
	Orphaned []string `json:"orphaned,omitempty"`
}

func (r *LoadResult) Record(o Outcome) {
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	}
}

package model

// Stats summarizes a collection. Counts are over every todo, independent of
// any filter.
type Stats struct {
	Total          int              `json:"total"`
	Active         int              `json:"active"`
	Completed      int              `json:"completed"`
	PriorityCounts map[Priority]int `json:"priority_counts"`
}

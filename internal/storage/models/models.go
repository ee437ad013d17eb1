package models

import "time"

type EmbeddingRun struct {
	ID             string
	Trigger        string
	Seed           int64
	RowCount       int
	DegenerateRows int
	DegenerateAxes string
	Stress         float64
	Iterations     int
	CacheHit       bool
	DurationMS     int64
	CreatedAt      time.Time
	// TableCSV is the exported current table; only stored for table edits.
	TableCSV string
}

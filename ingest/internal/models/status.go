package models

import "time"

// Status codes written by the pipeline.
const (
	StatusInProgress = 102
	StatusComplete   = 200
	StatusStaged     = 202
	StatusFailed     = 500
)

// StatusRecord is the durable progress record of one model name.
type StatusRecord struct {
	Name      string    `json:"name" bson:"name"`
	Status    int       `json:"status" bson:"status"`
	Log       []string  `json:"log" bson:"log"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Latest returns the most recent checkpoint message, or "".
func (r *StatusRecord) Latest() string {
	if r == nil || len(r.Log) == 0 {
		return ""
	}
	return r.Log[len(r.Log)-1]
}

// StatusSummary is the read view served by get-model-status.
type StatusSummary struct {
	Name             string `json:"name"`
	LatestStatus     int    `json:"latestStatus"`
	LatestLogMessage string `json:"latestLogMessage"`
}

// Summary condenses r for API responses.
func (r *StatusRecord) Summary() StatusSummary {
	return StatusSummary{Name: r.Name, LatestStatus: r.Status, LatestLogMessage: r.Latest()}
}

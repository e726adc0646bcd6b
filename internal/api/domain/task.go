package domain

import "time"

const (
	TaskStatusPending = "pending"
)

// AcceptedTask is a worker's claim on a job
type AcceptedTask struct {
	ID         string    `json:"_id"`
	JobID      string    `json:"jobId"`
	Title      string    `json:"title"`
	AcceptedBy string    `json:"acceptedBy"`
	AcceptedAt time.Time `json:"acceptedAt"`
	Status     string    `json:"status"`
}

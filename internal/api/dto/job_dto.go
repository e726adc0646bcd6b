package dto

// ListJobsRequest is the query of GET /jobs
type ListJobsRequest struct {
	Sort string `form:"sort"`
}

// EmailQuery is the query of the per-user listings
type EmailQuery struct {
	Email string `form:"email"`
}

// AcceptTaskRequest is the body of POST /accept-task
type AcceptTaskRequest struct {
	JobID      string `json:"jobId"`
	Title      string `json:"title"`
	AcceptedBy string `json:"acceptedBy"`
}

// InsertResponse acknowledges a created record
type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// MessageResponse is used for successful mutations and for every error
type MessageResponse struct {
	Message string `json:"message"`
}

package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
)

type taskModel struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	JobID      primitive.ObjectID `bson:"jobId"`
	Title      string             `bson:"title"`
	AcceptedBy string             `bson:"acceptedBy"`
	AcceptedAt time.Time          `bson:"acceptedAt"`
	Status     string             `bson:"status"`
}

func toTaskModel(t *domain.AcceptedTask) (*taskModel, error) {
	jobID, err := primitive.ObjectIDFromHex(t.JobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", t.JobID, err)
	}
	return &taskModel{
		JobID:      jobID,
		Title:      t.Title,
		AcceptedBy: t.AcceptedBy,
		AcceptedAt: t.AcceptedAt,
		Status:     t.Status,
	}, nil
}

func fromTaskModel(m *taskModel) *domain.AcceptedTask {
	return &domain.AcceptedTask{
		ID:         m.ID.Hex(),
		JobID:      m.JobID.Hex(),
		Title:      m.Title,
		AcceptedBy: m.AcceptedBy,
		AcceptedAt: m.AcceptedAt.UTC(),
		Status:     m.Status,
	}
}

func toJobDocument(j *domain.Job) bson.M {
	doc := make(bson.M, len(j.Fields)+3)
	for k, v := range j.Fields {
		doc[k] = v
	}
	doc[domain.FieldTitle] = j.Title
	doc[domain.FieldUserEmail] = j.UserEmail
	doc[domain.FieldPostedAt] = j.PostedAt
	return doc
}

// fromJobDocument converts a stored document. Documents written by older
// clients may hold non-string title or userEmail values; those read as empty.
func fromJobDocument(doc bson.M) *domain.Job {
	job := &domain.Job{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case domain.FieldID:
			job.ID = insertedID(v)
		case domain.FieldTitle:
			job.Title, _ = v.(string)
		case domain.FieldUserEmail:
			job.UserEmail, _ = v.(string)
		case domain.FieldPostedAt:
			job.PostedAt = toTime(v)
		default:
			job.Fields[k] = normalize(v)
		}
	}
	return job
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return time.Time{}
	}
}

// normalize turns driver specific values into plain Go values so the job
// encodes to the same JSON no matter which backend produced it.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case primitive.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = normalize(e)
		}
		return a
	default:
		return v
	}
}

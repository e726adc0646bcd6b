package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Field names of the job document as seen by clients and the document store
const (
	FieldID        = "_id"
	FieldTitle     = "title"
	FieldUserEmail = "userEmail"
	FieldPostedAt  = "postedAt"
)

// Job is a posted job. Title, UserEmail and PostedAt are the fields the
// service relies on; every other client-supplied field is kept in Fields.
type Job struct {
	ID        string
	Title     string
	UserEmail string
	PostedAt  time.Time
	Fields    map[string]any
}

// MarshalJSON flattens the job into a single document
func (j Job) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(j.Fields)+4)
	for k, v := range j.Fields {
		doc[k] = v
	}
	doc[FieldID] = j.ID
	doc[FieldTitle] = j.Title
	doc[FieldUserEmail] = j.UserEmail
	doc[FieldPostedAt] = j.PostedAt
	return json.Marshal(doc)
}

// NewJob builds a job from a client document. Title and userEmail must be
// non-empty strings. Client supplied _id and postedAt are ignored and
// postedAt is stamped with now.
func NewJob(doc map[string]any, now time.Time) (*Job, error) {
	title, ok := nonEmptyString(doc[FieldTitle])
	if !ok {
		return nil, NewError(ErrValidation, "Missing required fields")
	}
	email, ok := nonEmptyString(doc[FieldUserEmail])
	if !ok {
		return nil, NewError(ErrValidation, "Missing required fields")
	}

	fields, err := extraFields(doc)
	if err != nil {
		return nil, err
	}

	return &Job{
		Title:     title,
		UserEmail: email,
		PostedAt:  now.UTC(),
		Fields:    fields,
	}, nil
}

// JobPatch is a partial update of a job. Nil pointers leave the field untouched.
type JobPatch struct {
	Title     *string
	UserEmail *string
	Fields    map[string]any
}

// NewJobPatch validates a client update document. Server owned fields
// (_id, postedAt) are dropped. Title and userEmail may be replaced but
// never with an empty or non-string value.
func NewJobPatch(doc map[string]any) (JobPatch, error) {
	var patch JobPatch

	if v, present := doc[FieldTitle]; present {
		title, ok := nonEmptyString(v)
		if !ok {
			return JobPatch{}, NewError(ErrValidation, "title must be a non-empty string")
		}
		patch.Title = &title
	}

	if v, present := doc[FieldUserEmail]; present {
		email, ok := nonEmptyString(v)
		if !ok {
			return JobPatch{}, NewError(ErrValidation, "userEmail must be a non-empty string")
		}
		patch.UserEmail = &email
	}

	fields, err := extraFields(doc)
	if err != nil {
		return JobPatch{}, err
	}
	patch.Fields = fields

	return patch, nil
}

// IsEmpty reports whether applying the patch would change nothing
func (p JobPatch) IsEmpty() bool {
	return p.Title == nil && p.UserEmail == nil && len(p.Fields) == 0
}

// Set returns the patch as a flat field map suitable for a $set update
func (p JobPatch) Set() map[string]any {
	set := make(map[string]any, len(p.Fields)+2)
	for k, v := range p.Fields {
		set[k] = v
	}
	if p.Title != nil {
		set[FieldTitle] = *p.Title
	}
	if p.UserEmail != nil {
		set[FieldUserEmail] = *p.UserEmail
	}
	return set
}

// Apply merges the patch into the job in place
func (p JobPatch) Apply(job *Job) {
	if p.Title != nil {
		job.Title = *p.Title
	}
	if p.UserEmail != nil {
		job.UserEmail = *p.UserEmail
	}
	if len(p.Fields) == 0 {
		return
	}
	if job.Fields == nil {
		job.Fields = make(map[string]any, len(p.Fields))
	}
	for k, v := range p.Fields {
		job.Fields[k] = v
	}
}

// extraFields copies every non-reserved field of doc. Keys starting with '$'
// are operators in the document store and are rejected.
func extraFields(doc map[string]any) (map[string]any, error) {
	fields := make(map[string]any)
	for k, v := range doc {
		switch k {
		case FieldID, FieldTitle, FieldUserEmail, FieldPostedAt:
			continue
		}
		if k == "" || strings.HasPrefix(k, "$") {
			return nil, NewError(ErrValidation, "invalid field name")
		}
		fields[k] = v
	}
	return fields, nil
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

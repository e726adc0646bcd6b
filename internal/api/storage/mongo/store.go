// Package mongo implements storage.Store on MongoDB. The jobs collection
// holds free-form documents; acceptedTasks carries a unique index on
// (jobId, acceptedBy) that backs the duplicate-accept conflict.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongod "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cuongbtq/freelance-marketplace/internal/api/domain"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
	"github.com/cuongbtq/freelance-marketplace/shared/mongodb"
)

var _ storage.Store = (*Store)(nil)

// Store is the MongoDB storage backend
type Store struct {
	client *mongodb.Client
	jobs   *mongod.Collection
	tasks  *mongod.Collection
	logger *slog.Logger
}

// New creates a Store on the client's database. Close disconnects the client.
func New(client *mongodb.Client, logger *slog.Logger) *Store {
	db := client.GetDatabase()
	return &Store{
		client: client,
		jobs:   db.Collection(storage.CollectionJobs),
		tasks:  db.Collection(storage.CollectionAcceptedTasks),
		logger: logger,
	}
}

func (s *Store) ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	query := bson.M{}
	if filter.UserEmail != "" {
		query[domain.FieldUserEmail] = filter.UserEmail
	}

	cursor, err := s.jobs.Find(ctx, query, options.Find().SetSort(sortSpec(filter.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(docs))
	for _, doc := range docs {
		jobs = append(jobs, fromJobDocument(doc))
	}
	return jobs, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var doc bson.M
	err = s.jobs.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return fromJobDocument(doc), nil
}

func (s *Store) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	res, err := s.jobs.InsertOne(ctx, toJobDocument(job))
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	return insertedID(res.InsertedID), nil
}

func (s *Store) UpdateJob(ctx context.Context, id string, patch domain.JobPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	_, err = s.jobs.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": patch.Set()})
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	if _, err := s.jobs.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *Store) FindTask(ctx context.Context, jobID, acceptedBy string) (*domain.AcceptedTask, error) {
	oid, err := primitive.ObjectIDFromHex(jobID)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var m taskModel
	err = s.tasks.FindOne(ctx, bson.M{"jobId": oid, "acceptedBy": acceptedBy}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return fromTaskModel(&m), nil
}

func (s *Store) CreateTask(ctx context.Context, task *domain.AcceptedTask) (string, error) {
	m, err := toTaskModel(task)
	if err != nil {
		return "", err
	}

	res, err := s.tasks.InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return "", storage.ErrDuplicate
		}
		return "", fmt.Errorf("failed to create task: %w", err)
	}
	return insertedID(res.InsertedID), nil
}

func (s *Store) ListTasksByAcceptor(ctx context.Context, email string) ([]*domain.AcceptedTask, error) {
	cursor, err := s.tasks.Find(ctx, bson.M{"acceptedBy": email})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var models []taskModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]*domain.AcceptedTask, 0, len(models))
	for i := range models {
		tasks = append(tasks, fromTaskModel(&models[i]))
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	if _, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Store) DeleteTasksByJob(ctx context.Context, jobID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(jobID)
	if err != nil {
		return 0, nil
	}

	res, err := s.tasks.DeleteMany(ctx, bson.M{"jobId": oid})
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks for job: %w", err)
	}
	return res.DeletedCount, nil
}

// Migrate creates the indexes of both collections
func (s *Store) Migrate(ctx context.Context) error {
	for _, spec := range migrationIndexes() {
		col := s.client.GetDatabase().Collection(spec.collection)
		names, err := col.Indexes().CreateMany(ctx, spec.models)
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", spec.collection, err)
		}
		s.logger.Info("MongoDB indexes ensured",
			slog.String("collection", spec.collection),
			slog.Any("indexes", names),
		)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

type collectionIndexes struct {
	collection string
	models     []mongod.IndexModel
}

func migrationIndexes() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: storage.CollectionJobs,
			models: []mongod.IndexModel{
				{Keys: bson.D{{Key: domain.FieldPostedAt, Value: -1}}},
				{Keys: bson.D{{Key: domain.FieldUserEmail, Value: 1}}},
			},
		},
		{
			collection: storage.CollectionAcceptedTasks,
			models: []mongod.IndexModel{
				{
					Keys: bson.D{
						{Key: "jobId", Value: 1},
						{Key: "acceptedBy", Value: 1},
					},
					Options: options.Index().SetUnique(true).SetName("jobId_acceptedBy_unique"),
				},
				{Keys: bson.D{{Key: "acceptedBy", Value: 1}}},
			},
		},
	}
}

func sortSpec(order storage.SortOrder) bson.D {
	dir := -1
	if order == storage.SortOldest {
		dir = 1
	}
	return bson.D{
		{Key: domain.FieldPostedAt, Value: dir},
		{Key: "_id", Value: dir},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

func isDuplicateKey(err error) bool {
	return mongod.IsDuplicateKeyError(err)
}

func insertedID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}

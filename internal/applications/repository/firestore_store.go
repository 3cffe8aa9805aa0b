package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

// DefaultCollection is the Firestore collection holding job applications
const DefaultCollection = "jobApplications"

// Document field names
const (
	fieldCompanyName     = "companyName"
	fieldJobRole         = "jobRole"
	fieldApplicationDate = "applicationDate"
	fieldStatus          = "status"
	fieldNotes           = "notes"
	fieldCreatedAt       = "createdAt"
)

// FirestoreStore maps the collection onto a Firestore collection
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	retry      retryPolicy
}

// NewFirestoreStore creates a new FirestoreStore. An empty collection name
// selects DefaultCollection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection, retry: defaultRetry}
}

func (s *FirestoreStore) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create adds a document; createdAt is a server timestamp
func (s *FirestoreStore) Create(ctx context.Context, in domain.Input) (string, error) {
	ref, _, err := s.coll().Add(ctx, map[string]interface{}{
		fieldCompanyName:     in.CompanyName,
		fieldJobRole:         in.JobRole,
		fieldApplicationDate: in.ApplicationDate,
		fieldStatus:          string(in.Status),
		fieldNotes:           in.Notes,
		fieldCreatedAt:       firestore.ServerTimestamp,
	})
	if err != nil {
		return "", writeErr("create", "", err)
	}
	return ref.ID, nil
}

// Update sets every mutable field; Firestore rejects it if the document is gone
func (s *FirestoreStore) Update(ctx context.Context, id string, in domain.Input) error {
	_, err := s.coll().Doc(id).Update(ctx, []firestore.Update{
		{Path: fieldCompanyName, Value: in.CompanyName},
		{Path: fieldJobRole, Value: in.JobRole},
		{Path: fieldApplicationDate, Value: in.ApplicationDate},
		{Path: fieldStatus, Value: string(in.Status)},
		{Path: fieldNotes, Value: in.Notes},
	})
	if status.Code(err) == codes.NotFound {
		return writeErr("update", id, domain.ErrNotFound)
	}
	if err != nil {
		return writeErr("update", id, err)
	}
	return nil
}

// Delete removes a document; Firestore treats a missing document as success
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll().Doc(id).Delete(ctx); err != nil {
		return writeErr("delete", id, err)
	}
	return nil
}

// Ping reads at most one document to check that the collection is reachable
func (s *FirestoreStore) Ping(ctx context.Context) error {
	it := s.coll().Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// Subscribe listens to the collection ordered by applicationDate descending.
// A failed listener is reopened after a backoff.
func (s *FirestoreStore) Subscribe(ctx context.Context) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit EmitFunc) {
		for attempt := 0; ; attempt++ {
			err := s.follow(ctx, emit, func() { attempt = -1 })
			if ctx.Err() != nil {
				return
			}
			if !emit(errorEvent(err)) || !s.retry.wait(ctx, attempt) {
				return
			}
		}
	})
}

func (s *FirestoreStore) follow(ctx context.Context, emit EmitFunc, healthy func()) error {
	it := s.coll().OrderBy(fieldApplicationDate, firestore.Desc).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return errors.New("snapshot listener closed")
		}
		if err != nil {
			return err
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}

		records := make([]domain.JobApplication, 0, len(docs))
		for _, doc := range docs {
			records = append(records, applicationFromData(doc.Ref.ID, doc.Data()))
		}
		if !emit(snapshotEvent(records)) {
			return ctx.Err()
		}
		healthy()
	}
}

// applicationFromData decodes a document leniently: absent or mistyped
// fields come back as zero values rather than failing the whole snapshot.
func applicationFromData(id string, data map[string]interface{}) domain.JobApplication {
	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}

	app := domain.JobApplication{
		ID:              id,
		CompanyName:     str(fieldCompanyName),
		JobRole:         str(fieldJobRole),
		ApplicationDate: str(fieldApplicationDate),
		Status:          domain.Status(str(fieldStatus)),
		Notes:           str(fieldNotes),
	}
	if t, ok := data[fieldCreatedAt].(time.Time); ok {
		app.CreatedAt = &t
	}
	return app
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/simaogato/networth-backend/internal/domain"
)

// DefaultDocumentID is the _id of the single stored document
const DefaultDocumentID = "default"

// CollectionName is the collection holding the document
const CollectionName = "documents"

// record is the stored shape. The body keeps the exact JSON of the document
// so balances survive without a float round trip through BSON doubles.
type record struct {
	ID        string    `bson:"_id"`
	Body      string    `bson:"body"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Store wraps MongoDB operations for the document
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	id         string
}

// NewStore connects to MongoDB and returns a snapshot store on dbName.documents
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := newStore(client.Database(dbName).Collection(CollectionName))
	store.client = client
	return store, nil
}

func newStore(collection *mongo.Collection) *Store {
	return &Store{collection: collection, id: DefaultDocumentID}
}

// Close closes the database connection
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Load retrieves the document, or an empty one if it was never saved
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	var rec record
	err := s.collection.FindOne(ctx, bson.M{"_id": s.id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.NewDocument(), nil
		}
		return nil, &domain.StorageError{Op: "load", Err: fmt.Errorf("failed to find document: %w", err)}
	}

	doc, err := domain.UnmarshalDocument([]byte(rec.Body))
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save replaces the stored document, inserting it on first save
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	rec := record{ID: s.id, Body: string(body), UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": s.id}, rec, opts); err != nil {
		return &domain.StorageError{Op: "save", Err: fmt.Errorf("failed to replace document: %w", err)}
	}
	return nil
}

// Package mongodb provides a MongoDB-backed implementation of the
// storage.Storage interface using the official mongo-driver.
//
// One *mongo.Client is created at startup and shared by every request;
// the driver keeps its own connection pool and is safe for concurrent use.
package mongodb

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

// MongoDB is the concrete implementation of storage.Storage.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ storage.Storage = (*MongoDB)(nil)

// New connects to the server described by cfg.Mongo, verifies the
// connection with a ping and returns a handle on the students collection.
func New(ctx context.Context, cfg *config.Config) (*MongoDB, error) {
	mc := cfg.Mongo

	opts := options.Client().
		SetHosts([]string{net.JoinHostPort(mc.Host, strconv.Itoa(mc.Port))}).
		SetConnectTimeout(mc.ConnectTimeout)
	if mc.User != "" {
		opts.SetAuth(options.Credential{
			AuthSource: mc.AuthDB,
			Username:   mc.User,
			Password:   mc.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, mc.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	return &MongoDB{
		client: client,
		coll:   client.Database(mc.Database).Collection(mc.Collection),
	}, nil
}

// NewFromCollection wraps an already connected collection. Close does not
// disconnect the owning client.
func NewFromCollection(coll *mongo.Collection) *MongoDB {
	return &MongoDB{coll: coll}
}

// Find returns all students, sorted when sortBy is set.
func (m *MongoDB) Find(ctx context.Context, sortBy, order string) ([]types.Student, error) {
	const op = "mongodb.Find"

	sort, ok, err := storage.ParseSort(sortBy, order)
	if err != nil {
		return nil, storage.Invalid(op, err)
	}

	opts := options.Find()
	if ok {
		opts.SetSort(bson.D{{Key: sortKey(sort.Field), Value: direction(sort.Descending)}})
	}

	cursor, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, storage.Transport(op, errors.Wrap(err, "querying students"))
	}

	// cursor.All closes the cursor.
	students := make([]types.Student, 0)
	if err := cursor.All(ctx, &students); err != nil {
		return nil, storage.Transport(op, errors.Wrap(err, "decoding students"))
	}

	return students, nil
}

// FindOne returns the student stored under id.
func (m *MongoDB) FindOne(ctx context.Context, id string) (types.Student, bool, error) {
	var student types.Student

	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Student{}, false, nil
	}
	if err != nil {
		return types.Student{}, false, storage.Transport("mongodb.FindOne", errors.Wrapf(err, "finding student %s", id))
	}

	return student, true, nil
}

// Create inserts a new student document keyed by a generated identifier.
func (m *MongoDB) Create(ctx context.Context, student types.CreateStudent) (string, error) {
	const op = "mongodb.Create"

	id, err := storage.NewID()
	if err != nil {
		return "", storage.Transport(op, err)
	}

	if _, err := m.coll.InsertOne(ctx, student.Student(id)); err != nil {
		return "", storage.Transport(op, errors.Wrap(err, "inserting student"))
	}

	return id, nil
}

// Update applies a $set of the fields present in student.
func (m *MongoDB) Update(ctx context.Context, id string, student types.UpdateStudent) (string, int64, error) {
	fields := student.Fields()
	if len(fields) == 0 {
		// $set with an empty document is rejected by the server.
		return id, 0, nil
	}

	set := make(bson.M, len(fields))
	for k, v := range fields {
		set[k] = v
	}

	res, err := m.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return id, 0, storage.Transport("mongodb.Update", errors.Wrapf(err, "updating student %s", id))
	}

	return id, res.ModifiedCount, nil
}

// Delete removes the student stored under id.
func (m *MongoDB) Delete(ctx context.Context, id string) (string, int64, error) {
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return id, 0, storage.Transport("mongodb.Delete", errors.Wrapf(err, "deleting student %s", id))
	}

	return id, res.DeletedCount, nil
}

// Close disconnects the client created by New.
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return errors.Wrap(m.client.Disconnect(ctx), "disconnecting from mongodb")
}

func sortKey(field string) string {
	if field == storage.IDField {
		return "_id"
	}
	return field
}

func direction(descending bool) int {
	if descending {
		return -1
	}
	return 1
}

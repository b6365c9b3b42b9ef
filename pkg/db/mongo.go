package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	recordsCollection = "users"
	maxPoolSize       = 10
	socketTimeout     = 75 * time.Second
)

type mongoDatabase struct {
	client  *mongo.Client
	records *mongo.Collection
}

type mongoRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Product   string             `bson:"product"`
	CreatedAt time.Time          `bson:"createdAt"`
	SourceIP  string             `bson:"sourceIp"`
	UserAgent string             `bson:"userAgent"`
}

func newMongo(ctx context.Context, opts Options) (Database, error) {
	name, err := databaseName(opts)
	if err != nil {
		return nil, err
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(maxPoolSize).
		SetSocketTimeout(socketTimeout).
		SetServerMonitor(serverMonitor(opts.OnFailure))
	if opts.ConnectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ConnectTimeout)
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	d := &mongoDatabase{
		client:  client,
		records: client.Database(name).Collection(recordsCollection),
	}

	if err := d.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if err := d.ensureIndexes(ctx, opts.UniqueEmail); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return d, nil
}

func databaseName(opts Options) (string, error) {
	if opts.Database != "" {
		return opts.Database, nil
	}

	cs, err := connstring.ParseAndValidate(opts.URI)
	if err != nil {
		return "", fmt.Errorf("invalid mongodb uri: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}

	return defaultDatabaseName, nil
}

// serverMonitor reports heartbeat failures after the handle has been established.
func serverMonitor(onFailure func(error)) *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			logrus.WithField("component", "mongodb").WithError(e.Failure).
				WithField("connection", e.ConnectionID).Warn("server heartbeat failed")
			if onFailure != nil && e.Failure != nil {
				onFailure(e.Failure)
			}
		},
	}
}

func (d *mongoDatabase) ensureIndexes(ctx context.Context, uniqueEmail bool) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	}
	if uniqueEmail {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		})
	}

	_, err := d.records.Indexes().CreateMany(ctx, models)
	return err
}

func (d *mongoDatabase) InsertRecord(ctx context.Context, record Record) (string, error) {
	doc := mongoRecord{
		ID:        primitive.NewObjectID(),
		Name:      record.Name,
		Email:     record.Email,
		Phone:     record.Phone,
		Product:   record.Product,
		CreatedAt: record.CreatedAt,
		SourceIP:  record.SourceIP,
		UserAgent: record.UserAgent,
	}

	if _, err := d.records.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return "", err
	}

	return doc.ID.Hex(), nil
}

func (d *mongoDatabase) ListRecords(ctx context.Context) ([]Record, error) {
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	cursor, err := d.records.Find(ctx, bson.D{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, Record{
			ID:        doc.ID.Hex(),
			Name:      doc.Name,
			Email:     doc.Email,
			Phone:     doc.Phone,
			Product:   doc.Product,
			CreatedAt: doc.CreatedAt,
			SourceIP:  doc.SourceIP,
			UserAgent: doc.UserAgent,
		})
	}

	return records, nil
}

func (d *mongoDatabase) CountRecords(ctx context.Context) (int64, error) {
	return d.records.CountDocuments(ctx, bson.D{})
}

func (d *mongoDatabase) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d *mongoDatabase) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOpts configures DialMongo.
type MongoOpts struct {
	AppName  string
	URI      string
	Username string
	Password string
}

// DialMongo connects to MongoDB and pings the primary.
func DialMongo(ctx context.Context, opts MongoOpts) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetAppName(opts.AppName).
		SetConnectTimeout(3 * time.Second)
	if opts.Username != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// Mongo keeps one document per key:
//
//	{_id: key, fields: {name: value}, expires_at: date}
//
// Field names must not contain "." or start with "$".
type Mongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

type mongoRecord struct {
	Key       string            `bson:"_id"`
	Fields    map[string]string `bson:"fields"`
	ExpiresAt time.Time         `bson:"expires_at"`
}

// NewMongo returns a Store on coll.
func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{coll: coll, now: time.Now}
}

// EnsureIndexes creates a TTL index on expires_at so the server also
// removes abandoned records in the background.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create ttl index: %w", err)
	}
	return nil
}

func checkMongoField(field string) error {
	if field == "" || strings.Contains(field, ".") || strings.HasPrefix(field, "$") {
		return fmt.Errorf("invalid mongo field name %q", field)
	}
	return nil
}

// purge drops the key if it has expired.
func (m *Mongo) purge(ctx context.Context, key string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": m.now()}})
	if err != nil {
		return fmt.Errorf("failed to purge expired key[%s]: %w", key, err)
	}
	return nil
}

// touch moves the expiry of an existing key and returns the document.
func (m *Mongo) touch(ctx context.Context, key string, ttl time.Duration) (*mongoRecord, error) {
	if err := m.purge(ctx, key); err != nil {
		return nil, err
	}
	var rec mongoRecord
	err := m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"expires_at": m.now().Add(ttl)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key[%s]: %w", key, err)
	}
	return &rec, nil
}

func (m *Mongo) GetField(ctx context.Context, key, field string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}
	rec, err := m.touch(ctx, key, ttl)
	if err != nil || rec == nil {
		return "", false, err
	}
	v, ok := rec.Fields[field]
	return v, ok, nil
}

func (m *Mongo) UpdateFields(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	set := bson.M{"expires_at": m.now().Add(ttl)}
	for f, v := range fields {
		if err := checkMongoField(f); err != nil {
			return err
		}
		set["fields."+f] = v
	}
	if err := m.purge(ctx, key); err != nil {
		return err
	}
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set key[%s]: %w", key, err)
	}
	return nil
}

func (m *Mongo) DeleteFields(ctx context.Context, key string, ttl time.Duration, fields ...string) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"expires_at": m.now().Add(ttl)}}
	if len(fields) > 0 {
		unset := bson.M{}
		for _, f := range fields {
			if err := checkMongoField(f); err != nil {
				return err
			}
			unset["fields."+f] = ""
		}
		update["$unset"] = unset
	}
	if err := m.purge(ctx, key); err != nil {
		return err
	}
	if _, err := m.coll.UpdateOne(ctx, bson.M{"_id": key}, update); err != nil {
		return fmt.Errorf("failed to delete fields of key[%s]: %w", key, err)
	}
	return nil
}

func (m *Mongo) DeleteKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete key[%s]: %w", key, err)
	}
	return nil
}

func (m *Mongo) Snapshot(ctx context.Context, key string, ttl time.Duration) (map[string]string, error) {
	if err := checkArgs(key, ttl); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	rec, err := m.touch(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		for k, v := range rec.Fields {
			out[k] = v
		}
	}
	return out, nil
}

var _ Store = (*Mongo)(nil)

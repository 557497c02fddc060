// Package mongocache implements cache.Cache on a MongoDB collection.
package mongocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ko3luhbka/dephell/pkg/cache"
)

const (
	DefaultDatabase   = "dephell"
	DefaultCollection = "cache"
)

// Options selects where entries are stored.
type Options struct {
	Database   string // default: dephell
	Collection string // default: cache
}

// Cache stores one document per key. Expired documents are treated as
// misses on read and removed by the TTL index from [Cache.EnsureIndexes].
type Cache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type entry struct {
	Key       string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// New connects to uri. The driver dials lazily; use EnsureIndexes or a
// first Get to surface connection problems.
func New(ctx context.Context, uri string, opts Options) (*Cache, error) {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongocache: %w", err)
	}
	return &Cache{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// EnsureIndexes creates the TTL index that lets the server drop expired
// entries.
func (c *Cache) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e entry
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt) {
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": key}, newEntry(key, data, ttl, time.Now()),
		options.Replace().SetUpsert(true))
	return err
}

func newEntry(key string, data []byte, ttl time.Duration, now time.Time) entry {
	e := entry{Key: key, Data: data}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		e.ExpiresAt = &exp
	}
	return e
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects the client.
func (c *Cache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

var _ cache.Cache = (*Cache)(nil)

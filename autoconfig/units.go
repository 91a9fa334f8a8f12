package autoconfig

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	profiles "github.com/goliatone/go-profiles"
	"github.com/goliatone/go-profiles/album/mongostore"
	"github.com/goliatone/go-profiles/album/redisstore"
	"github.com/goliatone/go-profiles/album/sqlstore"
)

// DefaultSQLiteDSN is used when no relational profile or URL is configured.
const DefaultSQLiteDSN = ":memory:"

// DefaultUnits returns the relational, document and cache repository units.
func DefaultUnits() []Unit {
	return []Unit{
		{ID: profiles.UnitDataSource, Build: buildRelational},
		{
			ID:        profiles.UnitMongoRepositories,
			DependsOn: []string{profiles.UnitMongo, profiles.UnitMongoData},
			Build:     buildDocument,
		},
		{
			ID:        profiles.UnitRedisRepositories,
			DependsOn: []string{profiles.UnitRedis},
			Build:     buildCache,
		},
	}
}

func buildRelational(ctx context.Context, c Context) (*Store, error) {
	dialect, err := sqlstore.DialectFor(relationalProfile(c.Result.Profile))
	if err != nil {
		return nil, err
	}
	uri := c.Property(PropertyDatasourceURL, "uri")
	if uri == "" {
		if dialect.Name != sqlstore.SQLite.Name {
			return nil, fmt.Errorf("no %s for %s", PropertyDatasourceURL, dialect.Name)
		}
		uri = DefaultSQLiteDSN
	}
	dsn, err := dialect.DSN(uri)
	if err != nil {
		return nil, err
	}
	db, err := sqlstore.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	store := sqlstore.New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	c.Logger.Debug().Str("dialect", dialect.Name).Msg("relational store ready")
	return &Store{
		Repository: store,
		close:      func(context.Context) error { return db.Close() },
	}, nil
}

// relationalProfile maps non-relational or absent profiles to the embedded
// database.
func relationalProfile(profile profiles.Tag) string {
	switch profile {
	case profiles.TagMongoDB, profiles.TagRedis:
		return ""
	default:
		return profile.String()
	}
}

func buildDocument(ctx context.Context, c Context) (*Store, error) {
	uri := c.Property(PropertyMongoURI, "uri")
	if uri == "" {
		return nil, fmt.Errorf("no %s configured", PropertyMongoURI)
	}
	database := c.Property(PropertyMongoDatabase, "database")
	store, client, err := mongostore.Open(ctx, uri, database)
	if err != nil {
		return nil, err
	}
	return &Store{
		Repository: store,
		close:      client.Disconnect,
	}, nil
}

func buildCache(ctx context.Context, c Context) (*Store, error) {
	var credentials map[string]any
	if c.Result.Source != nil {
		credentials = c.Result.Source.Credentials
	}
	opts, err := redisstore.ClientOptions(c.Property(PropertyRedisURL, ""), credentials)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{
		Repository: redisstore.New(client, ""),
		close:      func(context.Context) error { return client.Close() },
	}, nil
}

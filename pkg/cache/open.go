package cache

import (
	"context"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mlateration/pkg/errors"
)

// Default MongoDB names used when the URI does not name a database.
const (
	DefaultMongoDatabase   = "mlat"
	DefaultMongoCollection = "cache"
)

// Open returns the backend described by spec:
//
//	""  or "file"                    FileCache in fileDir
//	"none" or "off"                  NullCache
//	"redis://..." or "rediss://..."  RedisCache
//	"mongodb://..." or "mongodb+srv://..."  MongoCache
//
// For MongoDB the database is taken from the URI path, defaulting to
// [DefaultMongoDatabase]. A malformed URL is INVALID_INPUT; a server that
// cannot be reached is NETWORK_ERROR.
func Open(ctx context.Context, spec, fileDir string) (Cache, error) {
	switch {
	case spec == "" || spec == "file":
		c, err := NewFileCache(fileDir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case spec == "none" || spec == "off":
		return NewNullCache(), nil
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		if _, err := redis.ParseURL(spec); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid redis url")
		}
		c, err := NewRedisCache(ctx, spec)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open redis cache")
		}
		return c, nil
	case strings.HasPrefix(spec, "mongodb://"), strings.HasPrefix(spec, "mongodb+srv://"):
		if err := options.Client().ApplyURI(spec).Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid mongodb uri")
		}
		db := DefaultMongoDatabase
		if u, err := url.Parse(spec); err == nil {
			if p := strings.Trim(u.Path, "/"); p != "" {
				db = p
			}
		}
		c, err := NewMongoCache(ctx, spec, db, DefaultMongoCollection)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open mongodb cache")
		}
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported,
		"unknown cache %q (use file, none, redis://... or mongodb://...)", spec)
}

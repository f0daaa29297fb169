// Package mongodb connects the document store adapters to MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

const (
	PatientsCollection      = "patients"
	PrescriptionsCollection = "prescriptions"
)

type Config struct {
	URI      string
	Database string
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, fmt.Errorf("mongo uri is empty")
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

func Check(client *mongo.Client) db.Check {
	return db.Check{
		Backend: "mongo",
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
}

// Classify maps driver errors onto the storage sentinels.
func Classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	default:
		return storage.Unavailable(op, err)
	}
}

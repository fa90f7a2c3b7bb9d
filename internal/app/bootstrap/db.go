// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	auditstore "github.com/brigadetools/paradebook/internal/app/store/audit"
	invitestore "github.com/brigadetools/paradebook/internal/app/store/invites"
	memberstore "github.com/brigadetools/paradebook/internal/app/store/members"
	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	userstore "github.com/brigadetools/paradebook/internal/app/store/users"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and bundles the client and
// database handle into DBDeps for the rest of the lifecycle hooks.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema attaches the collection JSON-Schema validators and creates
// the indexes every store depends on: uniqueness of user emails, role
// assignments, invite codes, and section settings, plus the TTL index that
// expires old audit entries.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	validatorCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	err := validators.EnsureAll(validatorCtx, db, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure collection validators: %w", err)
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"users", userstore.New(db).EnsureIndexes},
		{"role_assignments", rolestore.New(db).EnsureIndexes},
		{"members", memberstore.New(db).EnsureIndexes},
		{"section_settings", settingsstore.New(db).EnsureIndexes},
		{"invite_codes", invitestore.New(db).EnsureIndexes},
		{"audit_log", func(ctx context.Context) error {
			return auditstore.New(db).EnsureIndexes(ctx, appCfg.AuditRetention)
		}},
	}

	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		err := step.run(stepCtx)
		cancel()
		if err != nil {
			logger.Error("index creation failed", zap.String("collection", step.name), zap.Error(err))
			return fmt.Errorf("ensure indexes for %s: %w", step.name, err)
		}
	}

	logger.Info("schema ensured", zap.Int("collections", len(steps)))
	return nil
}

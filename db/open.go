package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"school-graphql-server-go/config"
)

// Open connects the store backend selected by the configured connection
// string.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch backend {
	case config.BackendMongo:
		client, err := ConnectMongo(ctx, cfg.ConnectionString())
		if err != nil {
			return nil, err
		}
		log.Info("connected to MongoDB",
			zap.String("database", cfg.DatabaseName),
			zap.Bool("transactions", cfg.MongoTransactions),
		)
		return NewMongoStore(client, cfg.DatabaseName, cfg.MongoTransactions, log), nil
	case config.BackendRedis:
		client, err := ConnectRedis(ctx, cfg.ConnectionString())
		if err != nil {
			return nil, err
		}
		log.Info("connected to Redis", zap.Int("db", client.Options().DB))
		return NewRedisStore(client, log), nil
	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported backend %q", backend)
}

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSubmission  = "bcos:journal:submission:"
	keySchemaVersion     = "bcos:journal:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetSubmissions = "bcos:journal:submissions:index"

	operationTimeout = 5 * time.Second
)

// RedisJournal stores submission records in Redis, shared by every client
// pointed at the same server.
type RedisJournal struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to every key, e.g. "app1:" gives
	// "app1:bcos:journal:submission:<id>"
	KeyPrefix string
}

// NewRedisJournal connects to Redis and initializes the schema version.
func NewRedisJournal(cfg *RedisConfig, logger *zap.Logger) (*RedisJournal, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rj := &RedisJournal{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rj.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis submission journal initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rj, nil
}

func (r *RedisJournal) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisJournal) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// RecordSubmission stores the record and indexes its ID in one pipeline.
func (r *RedisJournal) RecordSubmission(record *persistence.SubmissionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("journal is closed")
	}

	data, err := persistence.MarshalSubmissionRecord(record)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.prefixKey(keyPrefixSubmission+record.ID), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetSubmissions), record.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

func (r *RedisJournal) LoadSubmission(id string) (*persistence.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("journal is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSubmission+id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return persistence.UnmarshalSubmissionRecord(data)
}

// ListSubmissions reads every indexed record. Index entries whose record is
// gone or unreadable are skipped.
func (r *RedisJournal) ListSubmissions() ([]*persistence.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("journal is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.prefixKey(keySetSubmissions)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submission index: %w", err)
	}

	records := make([]*persistence.SubmissionRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(keyPrefixSubmission + id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		record, err := persistence.UnmarshalSubmissionRecord([]byte(s))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal SubmissionRecord, skipping", "key", keys[i], "error", err)
			continue
		}
		records = append(records, record)
	}
	persistence.SortSubmissions(records)
	return records, nil
}

// Close is idempotent.
func (r *RedisJournal) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	r.logger.Sugar().Info("Redis submission journal closed")
	return nil
}

func (r *RedisJournal) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("journal is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

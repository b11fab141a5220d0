package client

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	badgerJournal "github.com/Layr-Labs/bcos-web3-go/pkg/persistence/badger"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence/memory"
	redisJournal "github.com/Layr-Labs/bcos-web3-go/pkg/persistence/redis"
)

// newJournal opens the journal backend selected by cfg. JournalType_None
// returns a nil journal.
func newJournal(cfg config.JournalConfig, logger *zap.Logger) (persistence.ISubmissionJournal, error) {
	switch cfg.Type {
	case config.JournalType_None:
		return nil, nil
	case config.JournalType_Memory:
		return memory.NewMemoryJournal(logger), nil
	case config.JournalType_Redis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis journal requires redis settings")
		}
		return redisJournal.NewRedisJournal(&redisJournal.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
	case config.JournalType_Badger:
		return badgerJournal.NewBadgerJournal(cfg.DataPath, logger)
	default:
		return nil, fmt.Errorf("unsupported journal type: %s", cfg.Type)
	}
}

func sameJournalConfig(a, b config.JournalConfig) bool {
	if a.Type != b.Type || a.DataPath != b.DataPath {
		return false
	}
	if a.Redis == nil || b.Redis == nil {
		return a.Redis == b.Redis
	}
	return *a.Redis == *b.Redis
}

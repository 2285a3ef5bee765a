package store

import (
	"strings"

	"github.com/agrinet/becknmart/config"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Open builds the backend named by cfg.Network.Store.
// db is only required for the sql backend.
func Open(cfg *config.AppConfig, db *gorm.DB) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Network.Store)) {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeBolt, "":
		return NewBoltStore(cfg.BoltPath())
	case TypeRedis:
		return NewRedisStore(cfg.Network.RedisAddr, cfg.Network.RedisPassword, cfg.Network.RedisDB)
	case TypeSQL:
		if db == nil {
			return nil, errors.New("sql store requires database.enabled")
		}
		return NewSQLStore(db)
	default:
		return nil, errors.Errorf("unknown network store %q", cfg.Network.Store)
	}
}

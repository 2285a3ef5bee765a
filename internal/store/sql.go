package store

import (
	"strings"
	"time"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps entries in the beckn_kv table
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates beckn_kv on the given connection
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&domain.KVEntry{}); err != nil {
		return nil, errors.Wrap(err, "sql: migrate beckn_kv")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(key string) ([]byte, error) {
	var row domain.KVEntry
	err := s.db.Where("kv_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "sql: get %s", key)
	}
	return []byte(row.Value), nil
}

func (s *SQLStore) Set(key string, value []byte) error {
	row := domain.KVEntry{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&row).Error
	return errors.Wrapf(err, "sql: set %s", key)
}

func (s *SQLStore) ScanPrefix(prefix string) ([]Entry, error) {
	var rows []domain.KVEntry
	err := s.db.Where("kv_key LIKE ? ESCAPE ?", escapeLike(prefix)+"%", `\`).
		Order("kv_key").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "sql: scan %s", prefix)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		// sqlite LIKE ignores ASCII case
		if !strings.HasPrefix(r.Key, prefix) {
			continue
		}
		out = append(out, Entry{Key: r.Key, Value: []byte(r.Value)})
	}
	return out, nil
}

// Close is a no-op, the connection belongs to the application
func (s *SQLStore) Close() error {
	return nil
}

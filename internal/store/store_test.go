package store

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/agrinet/becknmart/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	bs, err := NewBoltStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	mr := miniredis.RunT(t)
	rs := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rs.Close() })

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	ss, err := NewSQLStore(db)
	require.NoError(t, err)

	return map[string]Store{
		TypeMemory: NewMemoryStore(),
		TypeBolt:   bs,
		TypeRedis:  rs,
		TypeSQL:    ss,
	}
}

func keysOf(entries []Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

func TestStoreBackends(t *testing.T) {
	for name, s := range backends(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			t.Run("get missing", func(t *testing.T) {
				_, err := s.Get("missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("set and get", func(t *testing.T) {
				require.NoError(t, s.Set("a-1", []byte(`{"id":"1"}`)))
				v, err := s.Get("a-1")
				require.NoError(t, err)
				assert.Equal(t, `{"id":"1"}`, string(v))
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, s.Set("a-2", []byte("first")))
				require.NoError(t, s.Set("a-2", []byte("second")))
				v, err := s.Get("a-2")
				require.NoError(t, err)
				assert.Equal(t, "second", string(v))
			})

			t.Run("scan prefix", func(t *testing.T) {
				require.NoError(t, s.Set("b-1", []byte("x")))
				require.NoError(t, s.Set("ab-1", []byte("y")))
				entries, err := s.ScanPrefix("a-")
				require.NoError(t, err)
				assert.Equal(t, []string{"a-1", "a-2"}, keysOf(entries))

				entries, err = s.ScanPrefix("zzz-")
				require.NoError(t, err)
				assert.Empty(t, entries)
			})

			t.Run("scan prefix with like wildcards", func(t *testing.T) {
				require.NoError(t, s.Set("p%_-1", []byte("1")))
				require.NoError(t, s.Set("pXY-1", []byte("2")))
				entries, err := s.ScanPrefix("p%_-")
				require.NoError(t, err)
				assert.Equal(t, []string{"p%_-1"}, keysOf(entries))
			})
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("value")
	require.NoError(t, s.Set("k", buf))
	buf[0] = 'X'
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(v))
	assert.Equal(t, 1, s.Len())
}

func TestBoltStoreBackup(t *testing.T) {
	bs, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "kv.db"))
	require.NoError(t, err)
	defer bs.Close()
	require.NoError(t, bs.Set("k", []byte("v")))

	var buf bytes.Buffer
	n, err := bs.Backup(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Greater(t, n, int64(0))
}

func TestOpen(t *testing.T) {
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()

	cfg.Network.Store = "memory"
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Network.Store = "bolt"
	s, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, s)
	require.NoError(t, s.Close())

	cfg.Network.Store = "sql"
	_, err = Open(cfg, nil)
	assert.Error(t, err)

	cfg.Network.Store = "etcd"
	_, err = Open(cfg, nil)
	assert.Error(t, err)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `beckn\*\?\[x\]\\`, escapeGlob(`beckn*?[x]\`))
	assert.Equal(t, `a\%b\_c\\`, escapeLike(`a%b_c\`))
}

package marketplace

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agrinet/becknmart/internal/broadcast"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "siggy-1", Title: "Siggy Premium Vegetables", Category: "Fresh Produce", Provider: "Siggy Farms", Location: "Gujarat, India"},
		{ID: "siggy-2", Title: "Siggy Grain Collection", Category: "Grains", Provider: "Siggy Grains Co.", Location: "Rajasthan, India"},
	}
}

func TestComposeCatalogScenario(t *testing.T) {
	network := broadcast.NewNetwork(store.NewMemoryStore())
	view := NewView(Marketplace{Name: "siggy", Network: true, Items: localItems()}, network)
	require.NoError(t, view.Mount())
	defer view.Unmount()

	assert.Equal(t, localItems(), view.Catalog())

	itemX := domain.CatalogItem{ID: "x", Title: "Drip Irrigation Kit", Category: "Equipment"}
	require.NoError(t, network.Publish(itemX))

	catalog := view.Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, localItems(), catalog[:2])
	assert.Equal(t, itemX, catalog[2])
	assert.Equal(t, 1, view.BroadcastCount())
}

func TestComposeCatalogKeepsCollidingIDs(t *testing.T) {
	local := localItems()
	remote := []domain.CatalogItem{{ID: "siggy-1", Title: "Republished"}}
	out := ComposeCatalog(local, remote)
	require.Len(t, out, 3)
	assert.Equal(t, "siggy-1", out[0].ID)
	assert.Equal(t, "siggy-1", out[2].ID)
}

func TestViewUnmountStopsRefresh(t *testing.T) {
	network := broadcast.NewNetwork(store.NewMemoryStore())
	view := NewView(Marketplace{Name: "jomoto", Network: true}, network)
	require.NoError(t, view.Mount())
	require.NoError(t, view.Mount())
	assert.True(t, view.Mounted())
	assert.Equal(t, 1, network.Hub().Len())

	view.Unmount()
	view.Unmount()
	assert.False(t, view.Mounted())
	assert.Equal(t, 0, network.Hub().Len())

	require.NoError(t, network.Publish(domain.CatalogItem{ID: "late"}))
	assert.Empty(t, view.Catalog())

	// remounting picks up what was published meanwhile
	require.NoError(t, view.Mount())
	assert.Len(t, view.Catalog(), 1)
	view.Unmount()
}

func TestViewWithoutNetwork(t *testing.T) {
	network := broadcast.NewNetwork(store.NewMemoryStore())
	require.NoError(t, network.Publish(domain.CatalogItem{ID: "1"}))

	view := NewView(Marketplace{Name: "home", Items: localItems()}, network)
	require.NoError(t, view.Mount())
	assert.False(t, view.Mounted())
	assert.Equal(t, localItems(), view.Catalog())
}

type brokenSource struct{}

func (brokenSource) ListAll() ([]domain.CatalogItem, error) {
	return nil, errors.New("store offline")
}

func (brokenSource) Subscribe(broadcast.Handler) broadcast.Unsubscribe {
	return func() {}
}

// slowFirstSource blocks its first ListAll until release is closed and
// answers it with an older snapshot than every later call
type slowFirstSource struct {
	calls   int32
	entered chan struct{}
	release chan struct{}
}

func (s *slowFirstSource) ListAll() ([]domain.CatalogItem, error) {
	if atomic.AddInt32(&s.calls, 1) == 1 {
		close(s.entered)
		<-s.release
		return []domain.CatalogItem{{ID: "a"}}, nil
	}
	return []domain.CatalogItem{{ID: "a"}, {ID: "b"}}, nil
}

func (s *slowFirstSource) Subscribe(broadcast.Handler) broadcast.Unsubscribe {
	return func() {}
}

func TestViewConcurrentRefreshKeepsNewest(t *testing.T) {
	src := &slowFirstSource{entered: make(chan struct{}), release: make(chan struct{})}
	view := NewView(Marketplace{Name: "jomoto", Network: true}, src)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		view.onPublish(domain.CatalogItem{ID: "a"})
	}()
	<-src.entered

	second := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(second)
		view.onPublish(domain.CatalogItem{ID: "b"})
	}()
	// the second refresh waits for the first one
	assert.Never(t, func() bool {
		select {
		case <-second:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(src.release)
	wg.Wait()
	assert.Equal(t, 2, view.BroadcastCount())
}

func TestViewMountError(t *testing.T) {
	view := NewView(Marketplace{Name: "siggy", Network: true}, brokenSource{})
	assert.Error(t, view.Mount())
	assert.False(t, view.Mounted())
}

func TestRegistryDefaults(t *testing.T) {
	markets, err := LoadMarketplaces("")
	require.NoError(t, err)
	require.Len(t, markets, 3)

	network := broadcast.NewNetwork(store.NewMemoryStore())
	reg := NewRegistry(markets, network)
	require.NoError(t, reg.MountAll())
	defer reg.UnmountAll()

	// home does not listen, jomoto and siggy do
	assert.Equal(t, 2, network.Hub().Len())

	jomoto, ok := reg.Get("jomoto")
	require.True(t, ok)
	assert.Len(t, jomoto.Catalog(), 3)

	home, _ := reg.Get("home")
	tractor := home.Catalog()[1]
	assert.True(t, tractor.IsService)
	require.NoError(t, network.Publish(tractor))

	assert.Len(t, jomoto.Catalog(), 4)
	siggy, _ := reg.Get("siggy")
	assert.Equal(t, tractor, siggy.Catalog()[2])
	assert.Len(t, home.Catalog(), 3)

	_, ok = reg.Get("nope")
	assert.False(t, ok)
}

func TestParseMarketplacesRejectsDuplicates(t *testing.T) {
	_, err := ParseMarketplaces([]byte("- name: a\n- name: a\n"))
	assert.Error(t, err)
	_, err = ParseMarketplaces([]byte("- title: nameless\n"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	items := localItems()
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty", Filter{}, []string{"siggy-1", "siggy-2"}},
		{"all", Filter{Category: AllCategories}, []string{"siggy-1", "siggy-2"}},
		{"category", Filter{Category: "Grains"}, []string{"siggy-2"}},
		{"unknown category", Filter{Category: "Dairy"}, nil},
		{"query case folded", Filter{Query: "  VEGETABLES "}, []string{"siggy-1"}},
		{"query location", Filter{Query: "rajasthan"}, []string{"siggy-2"}},
		{"query and category", Filter{Category: "Grains", Query: "vegetables"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, it := range tt.filter.Apply(items) {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCategories(t *testing.T) {
	items := append(localItems(), domain.CatalogItem{Category: "Grains"}, domain.CatalogItem{})
	assert.Equal(t, []string{"All", "Fresh Produce", "Grains"}, Categories(items))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, localItems()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(exportHeaders, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "siggy-1,"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, localItems()))
	// xlsx is a zip container
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
	assert.Equal(t, "C3", cellName(2, 3))
}

// Package marketplace implements the storefront views that combine a fixed
// local catalog with the items published to the shared broadcast.
package marketplace

import (
	_ "embed"
	"os"
	"sync"

	"github.com/agrinet/becknmart/internal/broadcast"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed marketplaces.yaml
var defaultMarketplaces []byte

// Marketplace a named storefront with its own catalog
type Marketplace struct {
	Name    string               `yaml:"name" json:"name"`
	Title   string               `yaml:"title" json:"title"`
	Network bool                 `yaml:"network" json:"network"`
	Items   []domain.CatalogItem `yaml:"items" json:"-"`
}

// Source is what a view reads the broadcast from
type Source interface {
	ListAll() ([]domain.CatalogItem, error)
	Subscribe(fn broadcast.Handler) broadcast.Unsubscribe
}

// LoadMarketplaces reads marketplace definitions from file, or the bundled
// defaults when file is empty
func LoadMarketplaces(file string) ([]Marketplace, error) {
	if file == "" {
		return ParseMarketplaces(defaultMarketplaces)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read marketplaces %s", file)
	}
	return ParseMarketplaces(data)
}

func ParseMarketplaces(data []byte) ([]Marketplace, error) {
	var markets []Marketplace
	if err := yaml.Unmarshal(data, &markets); err != nil {
		return nil, errors.Wrap(err, "parse marketplaces")
	}
	seen := make(map[string]bool)
	for _, m := range markets {
		if m.Name == "" {
			return nil, errors.New("marketplace name is required")
		}
		if seen[m.Name] {
			return nil, errors.Errorf("duplicate marketplace %q", m.Name)
		}
		seen[m.Name] = true
	}
	return markets, nil
}

// ComposeCatalog local items first, then broadcast items. Ids colliding
// between the two lists are kept twice.
func ComposeCatalog(local, broadcast []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(local)+len(broadcast))
	out = append(out, local...)
	return append(out, broadcast...)
}

// View is a mounted marketplace. While mounted it re-reads the broadcast on
// every publish notification.
type View struct {
	market Marketplace
	source Source

	// refreshMu orders refreshes so a slow read never replaces a newer one
	refreshMu   sync.Mutex
	mu          sync.RWMutex
	broadcast   []domain.CatalogItem
	unsubscribe broadcast.Unsubscribe
}

func NewView(m Marketplace, src Source) *View {
	return &View{market: m, source: src}
}

// Mount loads the broadcast snapshot and starts listening. Calling it on a
// mounted view only refreshes.
func (v *View) Mount() error {
	if !v.market.Network {
		return nil
	}
	// subscribe before the first read so no publish falls in between
	v.mu.Lock()
	if v.unsubscribe == nil {
		v.unsubscribe = v.source.Subscribe(v.onPublish)
	}
	v.mu.Unlock()
	if err := v.Refresh(); err != nil {
		v.Unmount()
		return err
	}
	return nil
}

// Unmount stops listening, safe to call repeatedly
func (v *View) Unmount() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Mounted reports whether the view is listening for publishes
func (v *View) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unsubscribe != nil
}

func (v *View) onPublish(item domain.CatalogItem) {
	if err := v.Refresh(); err != nil {
		zap.L().Warn("marketplace refresh failed",
			zap.String("namespace", "marketplace"),
			zap.String("marketplace", v.market.Name),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// Refresh re-reads the broadcast list. A failed read keeps the previous list.
func (v *View) Refresh() error {
	if !v.market.Network {
		return nil
	}
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()
	items, err := v.source.ListAll()
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.broadcast = items
	v.mu.Unlock()
	return nil
}

// Catalog the displayed list, local first
func (v *View) Catalog() []domain.CatalogItem {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ComposeCatalog(v.market.Items, v.broadcast)
}

// BroadcastCount number of network items currently shown
func (v *View) BroadcastCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.broadcast)
}

func (v *View) Marketplace() Marketplace {
	return v.market
}

// Registry all views of the storefront, in definition order
type Registry struct {
	views []*View
	index map[string]*View
}

func NewRegistry(markets []Marketplace, src Source) *Registry {
	r := &Registry{index: make(map[string]*View, len(markets))}
	for _, m := range markets {
		v := NewView(m, src)
		r.views = append(r.views, v)
		r.index[m.Name] = v
	}
	return r
}

// MountAll mounts every view, stopping at the first failure
func (r *Registry) MountAll() error {
	for _, v := range r.views {
		if err := v.Mount(); err != nil {
			return errors.Wrapf(err, "mount %s", v.market.Name)
		}
	}
	return nil
}

func (r *Registry) UnmountAll() {
	for _, v := range r.views {
		v.Unmount()
	}
}

func (r *Registry) Get(name string) (*View, bool) {
	v, ok := r.index[name]
	return v, ok
}

func (r *Registry) Views() []*View {
	return r.views
}

// Package broadcast shares published catalog items between marketplace views
// through a prefix-namespaced store and a same-context notification hub.
package broadcast

import (
	"strings"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/store"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	DefaultPrefix = "beckn-product-"
	DefaultEvent  = "beckn-add"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Option func(*Network)

// WithPrefix sets the key prefix items are stored under
func WithPrefix(prefix string) Option {
	return func(n *Network) {
		if prefix != "" {
			n.prefix = prefix
		}
	}
}

// WithEvent sets the notification name
func WithEvent(event string) Option {
	return func(n *Network) {
		if event != "" {
			n.event = event
		}
	}
}

// WithHub shares an existing hub. Networks on the same hub see each other's
// publishes, networks on different hubs do not.
func WithHub(hub *Hub) Option {
	return func(n *Network) {
		if hub != nil {
			n.hub = hub
		}
	}
}

// Network the shared catalog broadcast
type Network struct {
	store  store.Store
	hub    *Hub
	prefix string
	event  string
}

func NewNetwork(s store.Store, opts ...Option) *Network {
	n := &Network{
		store:  s,
		prefix: DefaultPrefix,
		event:  DefaultEvent,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.hub == nil {
		n.hub = NewHub()
	}
	return n
}

// Publish stores item under prefix+id, replacing any previous value, then
// notifies subscribers. Nothing is notified when the store write fails.
func (n *Network) Publish(item domain.CatalogItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return errors.Wrapf(err, "encode item %s", item.ID)
	}
	if err := n.store.Set(n.Key(item.ID), data); err != nil {
		return err
	}
	n.hub.Notify(item)
	return nil
}

// ListAll returns every stored item. Entries that cannot be decoded are
// returned as empty placeholders. Order is not defined.
func (n *Network) ListAll() ([]domain.CatalogItem, error) {
	entries, err := n.store.ScanPrefix(n.prefix)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CatalogItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, DecodeItem(e.Value))
	}
	return items, nil
}

// Get returns the item stored for id
func (n *Network) Get(id string) (domain.CatalogItem, error) {
	data, err := n.store.Get(n.Key(id))
	if err != nil {
		return domain.CatalogItem{}, err
	}
	return DecodeItem(data), nil
}

// Subscribe registers fn for every later Publish on this network's hub
func (n *Network) Subscribe(fn Handler) Unsubscribe {
	return n.hub.Subscribe(fn)
}

// Key the store key for an item id
func (n *Network) Key(id string) string {
	return n.prefix + id
}

// ItemID strips the prefix from a store key
func (n *Network) ItemID(key string) string {
	return strings.TrimPrefix(key, n.prefix)
}

func (n *Network) Prefix() string {
	return n.prefix
}

func (n *Network) EventName() string {
	return n.event
}

func (n *Network) Hub() *Hub {
	return n.hub
}

// DecodeItem decodes a stored value leniently: numbers, bools and strings are
// coerced between each other and a field of the wrong type is left empty.
// Anything that is not a JSON object decodes to the empty placeholder.
func DecodeItem(data []byte) domain.CatalogItem {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return domain.CatalogItem{}
	}
	var item domain.CatalogItem
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &item,
	})
	if err != nil {
		return domain.CatalogItem{}
	}
	// fields that cannot be coerced stay zero, the rest are kept
	_ = dec.Decode(raw)
	return item
}

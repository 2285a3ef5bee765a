package broadcast

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItem(id, title string) domain.CatalogItem {
	return domain.CatalogItem{
		ID:          id,
		Title:       title,
		Description: "Freshly harvested, pesticide-free tomatoes",
		Category:    "Fresh Produce",
		Provider:    "Green Valley Farms",
		Location:    "Pune, Maharashtra",
		Price:       "₹45/kg",
		Rating:      4.8,
		Image:       "/assets/tomatoes.jpg",
		IsService:   false,
	}
}

func findByID(items []domain.CatalogItem, id string) []domain.CatalogItem {
	var out []domain.CatalogItem
	for _, it := range items {
		if it.ID == id {
			out = append(out, it)
		}
	}
	return out
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Set(string, []byte) error { return f.err }

func (f failingStore) ScanPrefix(string) ([]store.Entry, error) { return nil, f.err }

func TestPublishRoundTrip(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore())
	other := sampleItem("2", "Tractor Rental")
	other.IsService = true
	require.NoError(t, n.Publish(other))

	v := sampleItem("1", "Organic Tomatoes")
	require.NoError(t, n.Publish(v))

	items, err := n.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []domain.CatalogItem{v}, findByID(items, "1"))
	assert.Equal(t, []domain.CatalogItem{other}, findByID(items, "2"))

	got, err := n.Get("1")
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestPublishRoundTripBolt(t *testing.T) {
	bs, err := store.NewBoltStore(filepath.Join(t.TempDir(), "network.db"))
	require.NoError(t, err)
	defer bs.Close()

	n := NewNetwork(bs)
	v := sampleItem("1", "Organic Tomatoes")
	require.NoError(t, n.Publish(v))

	items, err := n.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogItem{v}, items)
}

func TestPublishOverwrite(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore())
	require.NoError(t, n.Publish(sampleItem("7", "first")))
	require.NoError(t, n.Publish(sampleItem("7", "second")))

	items, err := n.ListAll()
	require.NoError(t, err)
	matches := findByID(items, "7")
	require.Len(t, matches, 1)
	assert.Equal(t, "second", matches[0].Title)
}

func TestPublishNotifiesSubscribers(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore())

	var got []domain.CatalogItem
	unsubscribe := n.Subscribe(func(item domain.CatalogItem) {
		got = append(got, item)
	})

	var otherCalls int
	defer n.Subscribe(func(domain.CatalogItem) { otherCalls++ })()

	a := sampleItem("a", "A")
	b := sampleItem("b", "B")
	require.NoError(t, n.Publish(a))
	require.NoError(t, n.Publish(b))
	// delivery is synchronous, no waiting needed
	assert.Equal(t, []domain.CatalogItem{a, b}, got)

	unsubscribe()
	unsubscribe()
	require.NoError(t, n.Publish(sampleItem("c", "C")))
	assert.Len(t, got, 2)
	assert.Equal(t, 3, otherCalls)
	assert.Equal(t, 1, n.Hub().Len())
}

func TestUnsubscribeInsideCallback(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore())

	calls := 0
	var unsubscribe Unsubscribe
	unsubscribe = n.Subscribe(func(domain.CatalogItem) {
		calls++
		unsubscribe()
	})
	require.NoError(t, n.Publish(sampleItem("1", "x")))
	require.NoError(t, n.Publish(sampleItem("2", "y")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.Hub().Len())
}

func TestHandlerRemovedMidNotifyIsSkipped(t *testing.T) {
	hub := NewHub()
	calls := map[string]int{}
	var unsubA, unsubB Unsubscribe
	unsubA = hub.Subscribe(func(domain.CatalogItem) {
		calls["a"]++
		unsubB()
	})
	unsubB = hub.Subscribe(func(domain.CatalogItem) {
		calls["b"]++
		unsubA()
	})

	hub.Notify(sampleItem("1", "x"))
	// whichever ran first removed the other
	assert.Equal(t, 1, calls["a"]+calls["b"])
	assert.Equal(t, 0, hub.Len())
}

func TestCorruptEntryIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	n := NewNetwork(s)
	require.NoError(t, s.Set(n.Key("broken"), []byte("{not json")))
	valid := sampleItem("ok", "Valid")
	require.NoError(t, n.Publish(valid))

	items, err := n.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)

	var placeholders int
	for _, it := range items {
		if it.IsZero() {
			placeholders++
		}
	}
	assert.Equal(t, 1, placeholders)
	assert.Equal(t, []domain.CatalogItem{valid}, findByID(items, "ok"))
}

func TestListAllIgnoresForeignKeys(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Set("theme", []byte(`"dark"`)))
	require.NoError(t, s.Set("beckn-cart-1", []byte(`{"id":"cart"}`)))
	n := NewNetwork(s)
	items, err := n.ListAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCrossContextIsolation(t *testing.T) {
	shared := store.NewMemoryStore()
	tabA := NewNetwork(shared)
	tabB := NewNetwork(shared)

	var seenByB int
	defer tabB.Subscribe(func(domain.CatalogItem) { seenByB++ })()

	item := sampleItem("x", "From A")
	require.NoError(t, tabA.Publish(item))
	assert.Equal(t, 0, seenByB)

	items, err := tabB.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogItem{item}, items)
}

func TestSharedHubDeliversAcrossNetworks(t *testing.T) {
	hub := NewHub()
	a := NewNetwork(store.NewMemoryStore(), WithHub(hub))
	b := NewNetwork(store.NewMemoryStore(), WithHub(hub))

	var seen int
	defer b.Subscribe(func(domain.CatalogItem) { seen++ })()
	require.NoError(t, a.Publish(sampleItem("1", "x")))
	assert.Equal(t, 1, seen)
}

func TestPublishStoreFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	n := NewNetwork(failingStore{Store: store.NewMemoryStore(), err: boom})

	var calls int
	defer n.Subscribe(func(domain.CatalogItem) { calls++ })()

	err := n.Publish(sampleItem("1", "x"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, calls)

	_, err = n.ListAll()
	assert.ErrorIs(t, err, boom)
}

func TestPublishUnencodableItem(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore())
	var notified int
	n.Subscribe(func(domain.CatalogItem) { notified++ })

	err := n.Publish(domain.CatalogItem{ID: "nan", Rating: math.NaN()})
	require.Error(t, err)
	assert.Zero(t, notified)

	items, err := n.ListAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOptions(t *testing.T) {
	n := NewNetwork(store.NewMemoryStore(), WithPrefix("siggy-net-"), WithEvent("siggy-add"), WithPrefix(""))
	assert.Equal(t, "siggy-net-", n.Prefix())
	assert.Equal(t, "siggy-add", n.EventName())
	assert.Equal(t, "siggy-net-42", n.Key("42"))
	assert.Equal(t, "42", n.ItemID("siggy-net-42"))
}

func TestDecodeItem(t *testing.T) {
	tests := []struct {
		name string
		data string
		want domain.CatalogItem
	}{
		{
			name: "exact",
			data: `{"id":"1","title":"Seeds","rating":4.5,"isService":false}`,
			want: domain.CatalogItem{ID: "1", Title: "Seeds", Rating: 4.5},
		},
		{
			name: "weak types",
			data: `{"id":12,"rating":"4.2","isService":"true","price":120}`,
			want: domain.CatalogItem{ID: "12", Rating: 4.2, IsService: true, Price: "120"},
		},
		{
			name: "missing fields",
			data: `{"title":"Only a title"}`,
			want: domain.CatalogItem{Title: "Only a title"},
		},
		{name: "not json", data: `{{`, want: domain.CatalogItem{}},
		{name: "null", data: `null`, want: domain.CatalogItem{}},
		{name: "number", data: `42`, want: domain.CatalogItem{}},
		{name: "array", data: `[1,2]`, want: domain.CatalogItem{}},
		{name: "bad field", data: `{"id":"1","rating":"five"}`, want: domain.CatalogItem{ID: "1"}},
		{
			name: "bad field keeps the rest",
			data: `{"id":"p1","title":"Seeds","provider":"Jomoto","rating":"five"}`,
			want: domain.CatalogItem{ID: "p1", Title: "Seeds", Provider: "Jomoto"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeItem([]byte(tt.data)))
		})
	}
}

package app

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/pkg/common"
	"github.com/agrinet/becknmart/pkg/metrics"
)

const (
	TopicCatalogPublished = "catalog:published"

	SourceNetwork = "network"
	SourceAPI     = "api"
	SourceCLI     = "cli"
	SourceImport  = "import"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PublishedEvent is emitted on the system bus after an item reached the store
type PublishedEvent struct {
	Item   domain.CatalogItem
	Source string
	At     time.Time
}

// publishSources remembers which caller published an item id until the
// network notification for it arrives.
type publishSources struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string][]pendingSource
}

type pendingSource struct {
	token  uint64
	source string
}

// push queues source for id and returns the token that drop needs
func (p *publishSources) push(id, source string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		p.pending = make(map[string][]pendingSource)
	}
	p.seq++
	p.pending[id] = append(p.pending[id], pendingSource{token: p.seq, source: source})
	return p.seq
}

func (p *publishSources) pop(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.pending[id]
	if len(q) == 0 {
		return SourceNetwork
	}
	src := q[0].source
	if len(q) == 1 {
		delete(p.pending, id)
	} else {
		p.pending[id] = q[1:]
	}
	return src
}

// drop removes the entry pushed with token, other callers keep theirs
func (p *publishSources) drop(id string, token uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.pending[id]
	for i, e := range q {
		if e.token != token {
			continue
		}
		if len(q) == 1 {
			delete(p.pending, id)
			return
		}
		rest := make([]pendingSource, 0, len(q)-1)
		rest = append(rest, q[:i]...)
		p.pending[id] = append(rest, q[i+1:]...)
		return
	}
}

// PublishFrom publishes item to the network. source ends up in the audit log.
func (a *Application) PublishFrom(ctx context.Context, source string, item domain.CatalogItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	source = common.IfEmptyStr(source, SourceNetwork)
	token := a.sources.push(item.ID, source)
	if err := a.network.Publish(item); err != nil {
		a.sources.drop(item.ID, token)
		metrics.Incr(metrics.PublishFailed, 1)
		zap.L().Error("publish failed",
			zap.String("namespace", "broadcast"),
			zap.String("item_id", item.ID),
			zap.String("source", source),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// initEventHandlers relays network notifications onto the system bus
func (a *Application) initEventHandlers() {
	a.relay = a.network.Subscribe(func(item domain.CatalogItem) {
		a.bus.Publish(TopicCatalogPublished, PublishedEvent{
			Item:   item,
			Source: a.sources.pop(item.ID),
			At:     time.Now(),
		})
	})

	mustSubscribe := func(fn interface{}) {
		if err := a.bus.SubscribeAsync(TopicCatalogPublished, fn, true); err != nil {
			zap.S().Errorf("subscribe %s error %s", TopicCatalogPublished, err.Error())
		}
	}
	mustSubscribe(a.countPublished)
	if a.gormDB != nil {
		mustSubscribe(a.recordPublishLog)
	}
}

func (a *Application) countPublished(evt PublishedEvent) {
	metrics.Incr(metrics.PublishTotal, 1)
}

func (a *Application) recordPublishLog(evt PublishedEvent) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
			zap.S().Debug(string(debug.Stack()))
		}
	}()
	payload, err := json.MarshalToString(evt.Item)
	if err != nil {
		payload = ""
	}
	row := domain.PublishLog{
		ID:          common.UUIDint64(),
		ItemID:      evt.Item.ID,
		Title:       evt.Item.Title,
		Source:      evt.Source,
		Payload:     payload,
		PublishedAt: evt.At,
	}
	if err := a.gormDB.Create(&row).Error; err != nil {
		zap.L().Error("write publish log failed",
			zap.String("namespace", "audit"),
			zap.String("item_id", evt.Item.ID),
			zap.Error(err),
		)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrinet/becknmart/internal/app"
	"github.com/agrinet/becknmart/internal/broadcast"
	"github.com/agrinet/becknmart/internal/client"
	"github.com/agrinet/becknmart/internal/domain"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish one catalog item to the network",
	Example: `  becknmart publish --id drone-1 --title "Crop Spraying Drone" --service
  becknmart publish --file item.json --server http://127.0.0.1:8080`,
	RunE: runPublish,
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Publish every item of a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var (
	publishFile string
	publishItem domain.CatalogItem
	importSize  int
)

func init() {
	f := publishCmd.Flags()
	f.StringVarP(&publishFile, "file", "f", "", "JSON file holding one item")
	f.StringVar(&publishItem.ID, "id", "", "item id")
	f.StringVar(&publishItem.Title, "title", "", "title")
	f.StringVar(&publishItem.Description, "description", "", "description")
	f.StringVar(&publishItem.Category, "category", "", "category")
	f.StringVar(&publishItem.Provider, "provider", "", "provider")
	f.StringVar(&publishItem.Location, "location", "", "location")
	f.StringVar(&publishItem.Price, "price", "", "price label")
	f.Float64Var(&publishItem.Rating, "rating", 0, "rating")
	f.StringVar(&publishItem.Image, "image", "", "image path or URL")
	f.BoolVar(&publishItem.IsService, "service", false, "item is a service")

	importCmd.Flags().IntVarP(&importSize, "workers", "w", 8, "concurrent publishers")
}

// publisher sends items either to a server or to the local store
type publisher interface {
	publish(ctx context.Context, item domain.CatalogItem) error
	close()
}

type remotePublisher struct {
	c *client.Client
}

func (p remotePublisher) publish(ctx context.Context, item domain.CatalogItem) error {
	return p.c.Publish(ctx, item)
}

func (p remotePublisher) close() {}

type localPublisher struct {
	app    *app.Application
	source string
}

func (p localPublisher) publish(ctx context.Context, item domain.CatalogItem) error {
	return p.app.PublishFrom(ctx, p.source, item)
}

func (p localPublisher) close() {
	p.app.Release()
}

func newPublisher(source string) (publisher, error) {
	if serverURL != "" {
		return remotePublisher{c: client.New(serverURL)}, nil
	}
	a, err := openLocal()
	if err != nil {
		return nil, err
	}
	return localPublisher{app: a, source: source}, nil
}

// readItems accepts a single object or an array of objects. Entries are
// decoded leniently like stored values.
func readItems(file string) ([]domain.CatalogItem, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", file)
	}
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		return []domain.CatalogItem{broadcast.DecodeItem(data)}, nil
	}
	var raws []jsoniter.RawMessage
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrapf(err, "parse %s", file)
	}
	items := make([]domain.CatalogItem, 0, len(raws))
	for _, raw := range raws {
		items = append(items, broadcast.DecodeItem(raw))
	}
	return items, nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	item := publishItem
	if publishFile != "" {
		items, err := readItems(publishFile)
		if err != nil {
			return err
		}
		if len(items) != 1 {
			return errors.Errorf("%s holds %d items, use import for more than one", publishFile, len(items))
		}
		item = items[0]
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return errors.New("item id is required")
	}

	p, err := newPublisher(app.SourceCLI)
	if err != nil {
		return err
	}
	defer p.close()
	if err := p.publish(cmd.Context(), item); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", item.ID)
	return nil
}

// importResult counts of one import run
type importResult struct {
	ok     int64
	failed int64
}

func importItems(ctx context.Context, p publisher, items []domain.CatalogItem, workers int) (importResult, error) {
	var res importResult
	pool, err := ants.NewPool(workers)
	if err != nil {
		return res, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, it := range items {
		it := it
		if strings.TrimSpace(it.ID) == "" {
			atomic.AddInt64(&res.failed, 1)
			zap.L().Warn("import: skip item without id", zap.String("namespace", "import"))
			continue
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := p.publish(ctx, it); err != nil {
				atomic.AddInt64(&res.failed, 1)
				zap.L().Warn("import: publish failed",
					zap.String("namespace", "import"),
					zap.String("item_id", it.ID),
					zap.Error(err),
				)
				return
			}
			atomic.AddInt64(&res.ok, 1)
		})
		if err != nil {
			wg.Done()
			atomic.AddInt64(&res.failed, 1)
		}
	}
	wg.Wait()
	return res, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	items, err := readItems(args[0])
	if err != nil {
		return err
	}
	p, err := newPublisher(app.SourceImport)
	if err != nil {
		return err
	}
	defer p.close()

	res, err := importItems(cmd.Context(), p, items, importSize)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, failed %d\n", res.ok, res.failed)
	if res.failed > 0 {
		return errors.Errorf("%d items failed", res.failed)
	}
	return nil
}

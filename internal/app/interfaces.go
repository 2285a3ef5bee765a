package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/agrinet/becknmart/config"
	"github.com/agrinet/becknmart/internal/broadcast"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/marketplace"
)

// DBProvider provides database access, DB may be nil
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// NetworkProvider provides the shared catalog broadcast
type NetworkProvider interface {
	Network() *broadcast.Network
}

// MarketplaceProvider provides the mounted marketplace views
type MarketplaceProvider interface {
	Marketplaces() *marketplace.Registry
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	NetworkProvider
	MarketplaceProvider
	SchedulerProvider

	// PublishFrom publishes item to the network and records where it came from
	PublishFrom(ctx context.Context, source string, item domain.CatalogItem) error
	// RunBackupNow writes a snapshot of the network store into the backup dir
	RunBackupNow() (string, error)
}

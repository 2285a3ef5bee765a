package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/agrinet/becknmart/config"
	"github.com/agrinet/becknmart/internal/broadcast"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/marketplace"
	"github.com/agrinet/becknmart/internal/store"
	"github.com/agrinet/becknmart/pkg/metrics"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	store     store.Store
	network   *broadcast.Network
	markets   *marketplace.Registry
	bus       EventBus.Bus
	relay     broadcast.Unsubscribe
	sources   publishSources
}

// Ensure Application implements all interfaces
var (
	_ DBProvider          = (*Application)(nil)
	_ ConfigProvider      = (*Application)(nil)
	_ NetworkProvider     = (*Application)(nil)
	_ MarketplaceProvider = (*Application)(nil)
	_ SchedulerProvider   = (*Application)(nil)
	_ AppContext          = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB returns nil when database.enabled is false
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Network() *broadcast.Network {
	return a.network
}

func (a *Application) Store() store.Store {
	return a.store
}

func (a *Application) Marketplaces() *marketplace.Registry {
	return a.markets
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// InitLogger builds the global zap logger from cfg
func InitLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if cfg.System.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		rotate := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotate),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// Init opens storage and wires the broadcast network, marketplace views and jobs.
// The logger is expected to be initialized already.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := cfg.InitDirs(); err != nil {
		return err
	}

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Enabled && a.gormDB == nil {
		db, err := getDatabase(cfg.Database, cfg.System.Workdir)
		if err != nil {
			return err
		}
		a.gormDB = db
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}
	if a.gormDB != nil {
		if err := a.MigrateDB(cfg.Database.Debug); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
	}

	if a.store == nil {
		s, err := store.Open(cfg, a.gormDB)
		if err != nil {
			return errors.Wrap(err, "open network store")
		}
		a.store = s
	}
	zap.L().Info("network store ready",
		zap.String("namespace", "broadcast"),
		zap.String("store", cfg.Network.Store),
		zap.String("prefix", cfg.Network.Prefix),
	)

	a.network = broadcast.NewNetwork(a.store,
		broadcast.WithPrefix(cfg.Network.Prefix),
		broadcast.WithEvent(cfg.Network.Event),
	)

	a.bus = EventBus.New()
	a.initEventHandlers()

	markets, err := marketplace.LoadMarketplaces(cfg.Network.MarketplacesFile)
	if err != nil {
		return err
	}
	a.markets = marketplace.NewRegistry(markets, a.network)
	if err := a.markets.MountAll(); err != nil {
		return err
	}

	a.initJob()
	return nil
}

// OverrideStore sets the network store before Init (used in tests).
func (a *Application) OverrideStore(s store.Store) {
	a.store = s
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if a.gormDB == nil {
		return nil
	}
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.markets != nil {
		a.markets.UnmountAll()
	}
	if a.relay != nil {
		a.relay()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.L().Warn("close network store", zap.Error(err))
		}
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}

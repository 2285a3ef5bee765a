package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const envPrefix = "BECKNMART_"

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// DBConfig database configuration, only used by the sql store and the publish log
type DBConfig struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // postgres or sqlite
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	User    string `yaml:"user"`
	Passwd  string `yaml:"passwd"`
	Debug   bool   `yaml:"debug"`
}

// NetworkConfig shared catalog broadcast configuration
type NetworkConfig struct {
	Prefix           string     `yaml:"prefix"`
	Event            string     `yaml:"event"`
	Store            string     `yaml:"store"` // memory, bolt, redis, sql
	BoltFile         string     `yaml:"bolt_file"`
	RedisAddr        string     `yaml:"redis_addr"`
	RedisPassword    string     `yaml:"redis_password"`
	RedisDB          int        `yaml:"redis_db"`
	BackupCron       string     `yaml:"backup_cron"`
	MarketplacesFile string     `yaml:"marketplaces_file"`
	BackupSftp       SftpConfig `yaml:"backup_sftp"`
}

// SftpConfig remote copy of every backup, disabled while Addr is empty
type SftpConfig struct {
	Addr     string `yaml:"addr"` // host:port
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dir      string `yaml:"dir"`
	HostKey  string `yaml:"host_key"` // authorized_keys line, empty skips verification
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Logger   LogConfig     `yaml:"logger"`
	Database DBConfig      `yaml:"database"`
	Network  NetworkConfig `yaml:"network"`
}

// GetDataDir returns the data directory under workdir
func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

// GetBackupDir returns the backup directory under workdir
func (c *AppConfig) GetBackupDir() string {
	return filepath.Join(c.System.Workdir, "backup")
}

// GetLogDir returns the log directory under workdir
func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// BoltPath resolves the bolt file, relative names live in the data dir
func (c *AppConfig) BoltPath() string {
	if filepath.IsAbs(c.Network.BoltFile) {
		return c.Network.BoltFile
	}
	return filepath.Join(c.GetDataDir(), c.Network.BoltFile)
}

// InitDirs creates the workdir layout
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetBackupDir(), c.GetLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns the built-in defaults
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "BecknMart",
			Location: "Asia/Kolkata",
			Workdir:  "/var/becknmart",
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/becknmart/logs/becknmart.log",
		},
		Database: DBConfig{
			Type: "sqlite",
			Host: "127.0.0.1",
			Port: 5432,
			Name: "becknmart",
			User: "postgres",
		},
		Network: NetworkConfig{
			Prefix:     "beckn-product-",
			Event:      "beckn-add",
			Store:      "bolt",
			BoltFile:   "network.db",
			RedisAddr:  "127.0.0.1:6379",
			BackupCron: "@daily",
		},
	}
}

// LoadConfig reads defaults, then the yaml file (if any), then env overrides
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.System.Workdir, "SYSTEM_WORKDIR")
	setString(&cfg.System.Location, "SYSTEM_LOCATION")
	setBool(&cfg.System.Debug, "SYSTEM_DEBUG")
	setString(&cfg.Web.Host, "WEB_HOST")
	setInt(&cfg.Web.Port, "WEB_PORT")
	setString(&cfg.Logger.Mode, "LOGGER_MODE")
	setBool(&cfg.Logger.FileEnable, "LOGGER_FILE_ENABLE")
	setString(&cfg.Logger.Filename, "LOGGER_FILENAME")
	setBool(&cfg.Database.Enabled, "DB_ENABLED")
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Passwd, "DB_PASSWD")
	setString(&cfg.Network.Prefix, "NETWORK_PREFIX")
	setString(&cfg.Network.Store, "NETWORK_STORE")
	setString(&cfg.Network.BoltFile, "NETWORK_BOLT_FILE")
	setString(&cfg.Network.RedisAddr, "NETWORK_REDIS_ADDR")
	setString(&cfg.Network.RedisPassword, "NETWORK_REDIS_PASSWORD")
	setInt(&cfg.Network.RedisDB, "NETWORK_REDIS_DB")
	setString(&cfg.Network.MarketplacesFile, "NETWORK_MARKETPLACES_FILE")
	setString(&cfg.Network.BackupSftp.Addr, "BACKUP_SFTP_ADDR")
	setString(&cfg.Network.BackupSftp.User, "BACKUP_SFTP_USER")
	setString(&cfg.Network.BackupSftp.Password, "BACKUP_SFTP_PASSWORD")
	setString(&cfg.Network.BackupSftp.Dir, "BACKUP_SFTP_DIR")
	setString(&cfg.Network.BackupSftp.HostKey, "BACKUP_SFTP_HOST_KEY")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		if n, err := cast.ToIntE(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		if b, err := cast.ToBoolE(v); err == nil {
			*dst = b
		}
	}
}

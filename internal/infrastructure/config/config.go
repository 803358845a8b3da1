package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration. Keys are the lowercase snake_case
// names in config.toml; any key can be overridden with STOCK_<SECTION>_<KEY>.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Event     EventConfig     `mapstructure:"event"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"` // production tightens validation
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"` // sqlite file, or ":memory:"
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// TenantConfig controls how a request is mapped to a tenant.
type TenantConfig struct {
	HeaderName  string        `mapstructure:"header_name"`  // carries a tenant ID or code
	BaseDomain  string        `mapstructure:"base_domain"`  // <code>.<base_domain> names a tenant
	DefaultCode string        `mapstructure:"default_code"` // when neither header nor host does
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`    // 0 disables the lookup cache
	Required    bool          `mapstructure:"required"`     // reject tenant-scoped queries without a tenant
}

type LedgerConfig struct {
	LockBackend string        `mapstructure:"lock_backend"` // memory or redis
	LockTimeout time.Duration `mapstructure:"lock_timeout"` // wait for the item lock before reporting contention
	LockTTL     time.Duration `mapstructure:"lock_ttl"`     // redis lock expiry if the holder dies
	LockPrefix  string        `mapstructure:"lock_prefix"`  // redis key prefix
}

type ForecastConfig struct {
	WindowDays    int `mapstructure:"window_days"`
	TargetDays    int `mapstructure:"target_days"`
	LeadTimeDays  int `mapstructure:"lead_time_days"`
	LowMarginDays int `mapstructure:"low_margin_days"`
}

type AuditConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	Workers    int `mapstructure:"workers"`
}

type EventConfig struct {
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"` // then the event is dropped
}

type SchedulerConfig struct {
	ReorderScanEnabled  bool          `mapstructure:"reorder_scan_enabled"`
	ReorderScanInterval time.Duration `mapstructure:"reorder_scan_interval"`
	JobTimeout          time.Duration `mapstructure:"job_timeout"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"` // defaults to app.name
	Insecure          bool          `mapstructure:"insecure"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	DBTraceFullSQL    bool          `mapstructure:"db_trace_full_sql"` // span statements carry arguments
}

// ProfilingConfig points the Pyroscope agent at its server.
type ProfilingConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ServerAddress      string `mapstructure:"server_address"`
	ProfileAllocations bool   `mapstructure:"profile_allocations"`
	ProfileMutexes     bool   `mapstructure:"profile_mutexes"`
}

// defaults registers every key, which is also what lets AutomaticEnv
// override keys absent from the file.
var defaults = map[string]any{
	"app.name": "stockledger",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "stockledger",
	"database.sslmode":            "disable",
	"database.path":               "stockledger.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     60 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_bytes":   1 << 20,
	"http.trusted_proxies":  []string{},
	"http.cors_origins":     []string{},

	"tenant.header_name":  "X-Tenant-ID",
	"tenant.base_domain":  "",
	"tenant.default_code": "",
	"tenant.cache_ttl":    time.Duration(0),
	"tenant.required":     false,

	"ledger.lock_backend": "memory",
	"ledger.lock_timeout": 5 * time.Second,
	"ledger.lock_ttl":     30 * time.Second,
	"ledger.lock_prefix":  "",

	"forecast.window_days":     30,
	"forecast.target_days":     30,
	"forecast.lead_time_days":  7,
	"forecast.low_margin_days": 5,

	"audit.buffer_size": 1024,
	"audit.workers":     2,

	"event.workers":         4,
	"event.queue_size":      1024,
	"event.enqueue_timeout": 50 * time.Millisecond,

	"scheduler.reorder_scan_enabled":  false,
	"scheduler.reorder_scan_interval": time.Hour,
	"scheduler.job_timeout":           10 * time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        15 * time.Second,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.db_trace_full_sql":       false,

	"profiling.enabled":             false,
	"profiling.server_address":      "http://localhost:4040",
	"profiling.profile_allocations": false,
	"profiling.profile_mutexes":     false,
}

// Load reads ./config.toml or /app/config.toml when present. STOCK_
// environment variables win over the file, which wins over defaults.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile is Load with an explicit file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Ledger.LockBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ledger.lock_backend must be memory or redis, got %q", c.Ledger.LockBackend)
	}
	if c.Ledger.LockTimeout < 0 {
		return fmt.Errorf("ledger.lock_timeout cannot be negative")
	}

	f := c.Forecast
	if f.WindowDays < 0 || f.TargetDays < 0 || f.LeadTimeDays < 0 || f.LowMarginDays < 0 {
		return fmt.Errorf("forecast parameters cannot be negative")
	}

	if c.Audit.BufferSize < 0 || c.Audit.Workers < 0 {
		return fmt.Errorf("audit.buffer_size and audit.workers cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		if !c.Tenant.Required {
			return fmt.Errorf("tenant.required must be true in production")
		}
		if c.Telemetry.DBTraceFullSQL {
			return fmt.Errorf("telemetry.db_trace_full_sql cannot be enabled in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

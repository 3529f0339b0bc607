package ops

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"hftexec/internal/errors"
	"hftexec/internal/execution"
	"hftexec/internal/journal"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/venue/chaos"
	"hftexec/pkg/conn"
	"hftexec/pkg/exception"
)

// EnvPrefix prefixes environment overrides, e.g. HFTEXEC_ENGINE_QSIZE.
const EnvPrefix = "HFTEXEC"

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"

	BridgeRedis = "redis"
	BridgeKafka = "kafka"
)

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Trader    string             `mapstructure:"trader"`
	Engine    execution.Config   `mapstructure:"engine"`
	Registry  RegistryConfig     `mapstructure:"registry"`
	Store     StoreConfig        `mapstructure:"store"`
	Bridge    BridgeConfig       `mapstructure:"bridge"`
	Metrics   MetricsConfig      `mapstructure:"metrics"`
	Profiling ProfilingConfig    `mapstructure:"profiling"`
	Journal   JournalConfig      `mapstructure:"journal"`
	Features  FeatureFlagsConfig `mapstructure:"features"`
}

// RegistryConfig defines venues and their instruments.
type RegistryConfig struct {
	Venues      []VenueConfig      `mapstructure:"venues"`
	Instruments []InstrumentConfig `mapstructure:"instruments"`
}

// VenueConfig describes one execution client. Script points a paper
// client at a mass status file.
type VenueConfig struct {
	Name      string       `mapstructure:"name"`
	Client    string       `mapstructure:"client"`
	Account   string       `mapstructure:"account"`
	OmsType   string       `mapstructure:"oms_type"`
	Script    string       `mapstructure:"script"`
	IsDefault bool         `mapstructure:"default"`
	Chaos     *ChaosConfig `mapstructure:"chaos"`
}

// ChaosConfig perturbs the order events a venue delivers.
type ChaosConfig struct {
	Seed          int64   `mapstructure:"seed"`
	DropRate      float64 `mapstructure:"drop_rate"`
	DuplicateRate float64 `mapstructure:"duplicate_rate"`
	ReorderWindow int     `mapstructure:"reorder_window"`
}

func (c ChaosConfig) Config() chaos.Config {
	return chaos.Config{
		Seed:          c.Seed,
		DropRate:      c.DropRate,
		DuplicateRate: c.DuplicateRate,
		ReorderWindow: c.ReorderWindow,
	}
}

// InstrumentConfig carries decimals as strings so fees keep their scale.
type InstrumentConfig struct {
	Symbol         string `mapstructure:"symbol"`
	Venue          string `mapstructure:"venue"`
	PricePrecision int32  `mapstructure:"price_precision"`
	SizePrecision  int32  `mapstructure:"size_precision"`
	Multiplier     string `mapstructure:"multiplier"`
	MakerFee       string `mapstructure:"maker_fee"`
	TakerFee       string `mapstructure:"taker_fee"`
	Base           string `mapstructure:"base"`
	Quote          string `mapstructure:"quote"`
	Inverse        bool   `mapstructure:"inverse"`
}

type StoreConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"sslmode"`
	ConnString string `mapstructure:"conn_string"`
	MaxConns   int    `mapstructure:"max_conns"`
}

// Option converts to the connection helper's options.
func (c PostgresConfig) Option() conn.Option {
	return conn.Option{
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		Database:   c.Database,
		SSLMode:    c.SSLMode,
		ConnString: c.ConnString,
		MaxConns:   c.MaxConns,
	}
}

type BridgeConfig struct {
	Kind       string      `mapstructure:"kind"`
	BufferSize int         `mapstructure:"buffer_size"`
	Topics     []string    `mapstructure:"topics"`
	Redis      RedisConfig `mapstructure:"redis"`
	Kafka      KafkaConfig `mapstructure:"kafka"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	Prefix        string `mapstructure:"prefix"`
	DialTimeoutMs int    `mapstructure:"dial_timeout_ms"`
}

// Option converts to the connection helper's options.
func (c RedisConfig) Option() conn.RedisOption {
	return conn.RedisOption{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: time.Duration(c.DialTimeoutMs) * time.Millisecond,
	}
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ProfilingConfig struct {
	Application   string `mapstructure:"application"`
	ServerAddress string `mapstructure:"server_address"`
}

type JournalConfig struct {
	Dir               string   `mapstructure:"dir"`
	FilePrefix        string   `mapstructure:"file_prefix"`
	SegmentMaxBytes   int64    `mapstructure:"segment_max_bytes"`
	SegmentMaxMinutes int      `mapstructure:"segment_max_minutes"`
	QueueSize         int      `mapstructure:"queue_size"`
	FlushIntervalMs   int      `mapstructure:"flush_interval_ms"`
	Topics            []string `mapstructure:"topics"`
}

// Config converts to the journal writer config. Zero values keep the
// writer defaults.
func (c JournalConfig) Config() journal.Config {
	cfg := journal.DefaultConfig(c.Dir)
	if c.FilePrefix != "" {
		cfg.FilePrefix = c.FilePrefix
	}
	if c.SegmentMaxBytes > 0 {
		cfg.SegmentMaxBytes = c.SegmentMaxBytes
	}
	if c.SegmentMaxMinutes > 0 {
		cfg.SegmentMaxDuration = time.Duration(c.SegmentMaxMinutes) * time.Minute
	}
	if c.QueueSize > 0 {
		cfg.QueueSize = c.QueueSize
	}
	if c.FlushIntervalMs > 0 {
		cfg.FlushInterval = time.Duration(c.FlushIntervalMs) * time.Millisecond
	}
	cfg.Topics = c.Topics
	return cfg
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	EnableBridge     *bool `mapstructure:"enable_bridge"`
	EnableMetrics    *bool `mapstructure:"enable_metrics"`
	EnableProfiling  *bool `mapstructure:"enable_profiling"`
	EnableJournal    *bool `mapstructure:"enable_journal"`
	ReconcileOnStart *bool `mapstructure:"reconcile_on_start"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	EnableBridge     bool
	EnableMetrics    bool
	EnableProfiling  bool
	EnableJournal    bool
	ReconcileOnStart bool
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Trader      model.TraderID
	Engine      execution.Config
	Venues      []VenueSpec
	Instruments []model.Instrument
	Store       StoreConfig
	Bridge      BridgeConfig
	Metrics     MetricsConfig
	Profiling   ProfilingConfig
	Journal     journal.Config
	Features    FeatureFlags
}

// VenueSpec is a resolved venue entry.
type VenueSpec struct {
	Venue     model.Venue
	Client    model.ClientID
	Account   model.AccountID
	OmsType   enum.OmsType
	Script    string
	IsDefault bool
	// Chaos is nil when events pass through untouched.
	Chaos *chaos.Config
}

// Load reads a JSON or YAML config file, applies HFTEXEC_ environment
// overrides and resolves the registry.
func Load(path string) (Loaded, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return Loaded{}, err
	}
	if err := v.ReadInConfig(); err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, errors.Wrapf(err, "decode config %s", path)
	}
	return Resolve(cfg)
}

// Resolve validates a decoded file config.
func Resolve(cfg FileConfig) (Loaded, error) {
	if err := cfg.Engine.Validate(); err != nil {
		return Loaded{}, err
	}
	venues, err := resolveVenues(cfg.Registry.Venues)
	if err != nil {
		return Loaded{}, err
	}
	instruments, err := resolveInstruments(cfg.Registry.Instruments, venues)
	if err != nil {
		return Loaded{}, err
	}
	if err := validateStore(cfg.Store); err != nil {
		return Loaded{}, err
	}
	features := resolveFeatures(cfg.Features)
	if features.EnableBridge {
		if err := validateBridge(cfg.Bridge); err != nil {
			return Loaded{}, err
		}
	}
	journalCfg := cfg.Journal.Config()
	if features.EnableJournal {
		if err := journalCfg.Validate(); err != nil {
			return Loaded{}, err
		}
	}
	return Loaded{
		Trader:      model.TraderID(cfg.Trader),
		Engine:      cfg.Engine,
		Venues:      venues,
		Instruments: instruments,
		Store:       cfg.Store,
		Bridge:      cfg.Bridge,
		Metrics:     cfg.Metrics,
		Profiling:   cfg.Profiling,
		Journal:     journalCfg,
		Features:    features,
	}, nil
}

// setDefaults registers every engine key so env overrides reach keys the
// file leaves out.
func setDefaults(v *viper.Viper) error {
	data, err := json.Marshal(execution.DefaultConfig())
	if err != nil {
		return errors.Wrap(err, "encode engine defaults")
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "decode engine defaults")
	}
	for k, val := range fields {
		v.SetDefault("engine."+k, val)
	}

	v.SetDefault("trader", "TRADER-001")
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("bridge.buffer_size", 4096)
	v.SetDefault("bridge.topics", []string{"events.*", "reports.*"})
	v.SetDefault("bridge.redis.prefix", "hftexec")
	v.SetDefault("bridge.kafka.topic", "hftexec.events")
	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("profiling.application", "hftexec.execd")
	v.SetDefault("journal.dir", "data/journal")
	v.SetDefault("journal.topics", []string{"commands.*", "events.*", "reports.*"})
	return nil
}

func resolveVenues(cfgs []VenueConfig) ([]VenueSpec, error) {
	seen := make(map[string]struct{}, len(cfgs))
	defaults := 0
	out := make([]VenueSpec, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Name == "" {
			return nil, errors.Wrap(exception.ErrInvalidArgument, "venue name is empty")
		}
		client := c.Client
		if client == "" {
			client = c.Name
		}
		if _, ok := seen[client]; ok {
			return nil, errors.Wrapf(exception.ErrInvalidArgument, "duplicate client %s", client)
		}
		seen[client] = struct{}{}

		oms, err := enum.ParseOmsType(strings.ToUpper(c.OmsType))
		if err != nil {
			return nil, errors.Wrapf(err, "venue %s", c.Name)
		}
		if !oms.IsAvailable() {
			oms = enum.OmsTypeNetting
		}
		if c.IsDefault {
			defaults++
		}
		spec := VenueSpec{
			Venue:     model.Venue(c.Name),
			Client:    model.ClientID(client),
			Account:   model.AccountID(c.Account),
			OmsType:   oms,
			Script:    c.Script,
			IsDefault: c.IsDefault,
		}
		if c.Chaos != nil {
			cc := c.Chaos.Config()
			if err := cc.Validate(); err != nil {
				return nil, errors.Wrapf(err, "venue %s chaos", c.Name)
			}
			spec.Chaos = &cc
		}
		out = append(out, spec)
	}
	if defaults > 1 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "more than one default venue")
	}
	return out, nil
}

func resolveInstruments(cfgs []InstrumentConfig, venues []VenueSpec) ([]model.Instrument, error) {
	known := make(map[model.Venue]struct{}, len(venues))
	for _, v := range venues {
		known[v.Venue] = struct{}{}
	}
	out := make([]model.Instrument, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Symbol == "" {
			return nil, errors.Wrap(exception.ErrInvalidArgument, "instrument symbol is empty")
		}
		venue := model.Venue(c.Venue)
		if _, ok := known[venue]; !ok {
			return nil, errors.Wrapf(exception.ErrInvalidArgument, "instrument %s: unknown venue %q", c.Symbol, c.Venue)
		}
		if err := validatePrecision(c); err != nil {
			return nil, err
		}
		inst := model.Instrument{
			ID:             model.NewInstrumentID(c.Symbol, venue),
			PricePrecision: c.PricePrecision,
			SizePrecision:  c.SizePrecision,
			BaseCurrency:   c.Base,
			QuoteCurrency:  c.Quote,
			IsInverse:      c.Inverse,
		}
		var err error
		if inst.Multiplier, err = parseDecimal(c.Multiplier, "1"); err != nil {
			return nil, errors.Wrapf(err, "instrument %s multiplier", inst.ID)
		}
		if inst.MakerFee, err = parseDecimal(c.MakerFee, "0"); err != nil {
			return nil, errors.Wrapf(err, "instrument %s maker_fee", inst.ID)
		}
		if inst.TakerFee, err = parseDecimal(c.TakerFee, "0"); err != nil {
			return nil, errors.Wrapf(err, "instrument %s taker_fee", inst.ID)
		}
		out = append(out, inst)
	}
	return out, nil
}

func validatePrecision(c InstrumentConfig) error {
	if c.PricePrecision < 0 || c.SizePrecision < 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "instrument %s: negative precision", c.Symbol)
	}
	return nil
}

func parseDecimal(text, fallback string) (decimal.Decimal, error) {
	if text == "" {
		text = fallback
	}
	return decimal.NewFromString(text)
}

func validateStore(cfg StoreConfig) error {
	switch cfg.Driver {
	case StoreMemory, "":
	case StoreFile:
		if cfg.Path == "" {
			return errors.Wrap(exception.ErrInvalidArgument, "file store needs a path")
		}
	case StorePostgres:
	default:
		return errors.Wrapf(exception.ErrArgumentUnsupported, "store driver %q", cfg.Driver)
	}
	return nil
}

func validateBridge(cfg BridgeConfig) error {
	switch cfg.Kind {
	case BridgeRedis:
	case BridgeKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return errors.Wrap(exception.ErrInvalidArgument, "kafka bridge needs brokers")
		}
	default:
		return errors.Wrapf(exception.ErrArgumentUnsupported, "bridge kind %q", cfg.Kind)
	}
	return nil
}

func resolveFeatures(cfg FeatureFlagsConfig) FeatureFlags {
	flags := FeatureFlags{
		EnableBridge:     false,
		EnableMetrics:    true,
		EnableProfiling:  false,
		EnableJournal:    false,
		ReconcileOnStart: true,
	}
	if cfg.EnableBridge != nil {
		flags.EnableBridge = *cfg.EnableBridge
	}
	if cfg.EnableMetrics != nil {
		flags.EnableMetrics = *cfg.EnableMetrics
	}
	if cfg.EnableProfiling != nil {
		flags.EnableProfiling = *cfg.EnableProfiling
	}
	if cfg.EnableJournal != nil {
		flags.EnableJournal = *cfg.EnableJournal
	}
	if cfg.ReconcileOnStart != nil {
		flags.ReconcileOnStart = *cfg.ReconcileOnStart
	}
	return flags
}

// Package config loads the visor daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/visor/archive"
	"github.com/hupe1980/visor/query"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "VISOR_CONFIG"

// Config is the daemon configuration.
type Config struct {
	Title  string `yaml:"title"`
	Listen string `yaml:"listen"`

	ResultsPerPage   int           `yaml:"results_per_page"`
	PageWindow       int           `yaml:"page_window"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	MaxWait          time.Duration `yaml:"max_wait"`
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	MaxExecutions    int64         `yaml:"max_executions"`
	BackendRate      float64       `yaml:"backend_rate"`
	BackendBurst     int           `yaml:"backend_burst"`
	KeywordsWildcard string        `yaml:"keywords_wildcard"`

	Datasets       map[string]string `yaml:"datasets"`
	DefaultDataset string            `yaml:"default_dataset"`
	Engines        map[string]Engine `yaml:"engines"`

	Cache   Cache   `yaml:"cache"`
	Archive Archive `yaml:"archive"`
	Log     Log     `yaml:"log"`
}

// Engine configures one backend engine.
type Engine struct {
	FullName string `yaml:"full_name"`
	// BackendAddr is host:port. BackendPort alone means localhost.
	BackendAddr       string        `yaml:"backend_addr"`
	BackendPort       int           `yaml:"backend_port"`
	BackendTimeout    time.Duration `yaml:"backend_timeout"`
	ImageInput        bool          `yaml:"image_input"`
	SkipQueryProgress bool          `yaml:"skip_query_progress"`
	SimilarEngine     string        `yaml:"engine_for_similar_search"`
}

// Addr returns the backend address of the engine.
func (e Engine) Addr() string {
	if e.BackendAddr != "" {
		return e.BackendAddr
	}
	if e.BackendPort > 0 {
		return "127.0.0.1:" + strconv.Itoa(e.BackendPort)
	}
	return ""
}

// Cache configures the query cache.
type Cache struct {
	TTL              time.Duration `yaml:"ttl"`
	MaxEntries       int           `yaml:"max_entries"`
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"`
	// Disabled turns off reuse of completed results. Concurrent identical
	// queries still share one execution. Resubmitting a finished query
	// restarts it under the same qsid, so pollers of that qsid see it
	// running again.
	Disabled bool `yaml:"disabled"`
}

// Archive kinds.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveMinio = "minio"
	ArchiveS3    = "s3"
)

// Archive configures ranking-list persistence.
type Archive struct {
	Kind        string `yaml:"kind"`
	Dir         string `yaml:"dir"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	UseSSL      bool   `yaml:"use_ssl"`
	DDBTable    string `yaml:"ddb_table"`
	Compression string `yaml:"compression"`
	Codec       string `yaml:"codec"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration of a single-engine installation.
func Default() *Config {
	return &Config{
		Title:            "My Visual Search Engine",
		Listen:           ":8000",
		ResultsPerPage:   50,
		PageWindow:       10,
		PollInterval:     250 * time.Millisecond,
		MaxWait:          2 * time.Minute,
		ExecutionTimeout: 10 * time.Minute,
		Workers:          8,
		QueueSize:        64,
		KeywordsWildcard: query.DefaultWildcard,
		Datasets:         map[string]string{"mydataset": "Any dataset"},
		Engines: map[string]Engine{
			"instances": {
				FullName:       "Instances",
				BackendPort:    45288,
				BackendTimeout: 30 * time.Second,
				ImageInput:     true,
				SimilarEngine:  "instances",
			},
		},
		Cache:   Cache{TTL: 30 * time.Minute},
		Archive: Archive{Kind: ArchiveNone, Compression: "zstd", Prefix: "rankinglists"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// FromEnv loads the file named by VISOR_CONFIG, or the defaults when the
// variable is unset.
func FromEnv() (*Config, error) {
	path := strings.TrimSpace(os.Getenv(EnvPath))
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes YAML on top of Default and validates the result. Maps
// given in the document replace the default maps.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	cfg.Datasets = nil
	cfg.Engines = nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	def := Default()
	if cfg.Datasets == nil {
		cfg.Datasets = def.Datasets
	}
	if cfg.Engines == nil {
		cfg.Engines = def.Engines
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.ResultsPerPage <= 0 {
		errs = append(errs, errors.New("results_per_page must be positive"))
	}
	if c.PageWindow <= 0 {
		errs = append(errs, errors.New("page_window must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.MaxWait <= 0 {
		errs = append(errs, errors.New("max_wait must be positive"))
	}
	if c.ExecutionTimeout < 0 || c.Cache.TTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.Workers < 0 || c.QueueSize < 0 || c.MaxExecutions < 0 || c.Cache.MaxEntries < 0 || c.Cache.MemoryLimitBytes < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	if c.BackendRate < 0 {
		errs = append(errs, errors.New("backend_rate must not be negative"))
	}
	if w := c.KeywordsWildcard; len(w) != 1 || w[0] == query.CuratedMarker {
		errs = append(errs, fmt.Errorf("keywords_wildcard must be a single character other than %q", query.CuratedMarker))
	}

	if len(c.Engines) == 0 {
		errs = append(errs, errors.New("at least one engine is required"))
	}
	for name, e := range c.Engines {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("engine name must not be empty"))
		}
		if e.BackendPort < 0 || e.BackendPort > 65535 {
			errs = append(errs, fmt.Errorf("engine %s: invalid backend_port %d", name, e.BackendPort))
		}
		if e.BackendTimeout < 0 {
			errs = append(errs, fmt.Errorf("engine %s: backend_timeout must not be negative", name))
		}
		if e.SimilarEngine != "" {
			if _, ok := c.Engines[e.SimilarEngine]; !ok {
				errs = append(errs, fmt.Errorf("engine %s: unknown similar engine %q", name, e.SimilarEngine))
			}
		}
	}
	if c.DefaultDataset != "" && len(c.Datasets) > 0 {
		if _, ok := c.Datasets[c.DefaultDataset]; !ok {
			errs = append(errs, fmt.Errorf("default_dataset %q is not a configured dataset", c.DefaultDataset))
		}
	}

	errs = append(errs, c.Archive.validate()...)
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (a Archive) validate() []error {
	var errs []error
	if _, err := archive.ParseCompression(a.Compression); err != nil {
		errs = append(errs, err)
	}
	switch a.Kind {
	case "", ArchiveNone:
	case ArchiveLocal:
		if a.Dir == "" {
			errs = append(errs, errors.New("archive: dir is required for local archives"))
		}
	case ArchiveMinio:
		if a.Endpoint == "" || a.Bucket == "" {
			errs = append(errs, errors.New("archive: endpoint and bucket are required for minio archives"))
		}
	case ArchiveS3:
		if a.Bucket == "" {
			errs = append(errs, errors.New("archive: bucket is required for s3 archives"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive: unknown kind %q", a.Kind))
	}
	return errs
}

// Registry builds the engine and dataset registry.
func (c *Config) Registry() *query.Registry {
	engines := make([]query.Engine, 0, len(c.Engines))
	for name, e := range c.Engines {
		engines = append(engines, query.Engine{
			Name:           name,
			FullName:       e.FullName,
			BackendAddr:    e.Addr(),
			BackendTimeout: e.BackendTimeout,
			ImageInput:     e.ImageInput,
			SkipProgress:   e.SkipQueryProgress,
			SimilarEngine:  e.SimilarEngine,
		})
	}

	var opts []query.RegistryOption
	if c.DefaultDataset != "" {
		opts = append(opts, query.WithDefaultDataset(c.DefaultDataset))
	}
	if c.KeywordsWildcard != "" {
		opts = append(opts, query.WithWildcard(c.KeywordsWildcard))
	}
	return query.NewRegistry(engines, c.Datasets, opts...)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
title: Faces and Instances
listen: 127.0.0.1:9000
results_per_page: 20
poll_interval: 100ms
max_wait: 30s
workers: 4
backend_rate: 50
datasets:
  mydataset: Any dataset
  bbc: BBC News
default_dataset: bbc
engines:
  instances:
    full_name: Instances
    backend_port: 45288
    backend_timeout: 5s
    image_input: true
    engine_for_similar_search: instances
  faces:
    full_name: Faces
    backend_addr: faces.internal:55302
    skip_query_progress: true
cache:
  ttl: 1h
  max_entries: 1000
  memory_limit_bytes: 268435456
archive:
  kind: local
  dir: /var/lib/visor/rankinglists
  compression: lz4
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Faces and Instances", cfg.Title)
	assert.Equal(t, 20, cfg.ResultsPerPage)
	assert.Equal(t, 10, cfg.PageWindow)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.MaxWait)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, int64(256<<20), cfg.Cache.MemoryLimitBytes)
	assert.Len(t, cfg.Datasets, 2)
	assert.Len(t, cfg.Engines, 2)

	assert.Equal(t, "127.0.0.1:45288", cfg.Engines["instances"].Addr())
	assert.Equal(t, "faces.internal:55302", cfg.Engines["faces"].Addr())
	assert.Equal(t, "lz4", cfg.Archive.Compression)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("title: x\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Engines, cfg.Engines)
	assert.Equal(t, def.Datasets, cfg.Datasets)
	assert.Equal(t, def.PollInterval, cfg.PollInterval)
	assert.Equal(t, def.Cache.TTL, cfg.Cache.TTL)
}

func TestRegistry(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	reg := cfg.Registry()
	assert.Equal(t, []string{"faces", "instances"}, reg.EngineNames())
	assert.Equal(t, "bbc", reg.DefaultDataset())
	assert.True(t, reg.HasDataset("mydataset"))
	assert.False(t, reg.HasDataset("other"))

	e, ok := reg.Engine("Instances")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:45288", e.BackendAddr)
	assert.Equal(t, 5*time.Second, e.BackendTimeout)
	assert.True(t, e.ImageInput)

	e, ok = reg.Engine("faces")
	require.True(t, ok)
	assert.True(t, e.SkipProgress)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"page size", func(c *Config) { c.ResultsPerPage = 0 }},
		{"poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero max wait", func(c *Config) { c.MaxWait = 0 }},
		{"negative max wait", func(c *Config) { c.MaxWait = -time.Second }},
		{"wildcard", func(c *Config) { c.KeywordsWildcard = "**" }},
		{"curated wildcard", func(c *Config) { c.KeywordsWildcard = "#" }},
		{"no engines", func(c *Config) { c.Engines = nil }},
		{"port", func(c *Config) { c.Engines["instances"] = Engine{BackendPort: 70000} }},
		{"similar", func(c *Config) { c.Engines["instances"] = Engine{SimilarEngine: "nope"} }},
		{"default dataset", func(c *Config) { c.DefaultDataset = "nope" }},
		{"archive kind", func(c *Config) { c.Archive.Kind = "ftp" }},
		{"archive dir", func(c *Config) { c.Archive.Kind = ArchiveLocal }},
		{"archive bucket", func(c *Config) { c.Archive.Kind = ArchiveS3 }},
		{"archive minio", func(c *Config) { c.Archive.Kind = ArchiveMinio; c.Archive.Bucket = "b" }},
		{"compression", func(c *Config) { c.Archive.Compression = "gzip" }},
		{"negative", func(c *Config) { c.Workers = -1 }},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Faces and Instances", cfg.Title)

	t.Setenv(EnvPath, path)
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.ResultsPerPage)

	t.Setenv(EnvPath, "")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("engines: [1, 2"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

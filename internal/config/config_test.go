package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/marketplace/internal/agent"
	"github.com/rl1809/marketplace/internal/core/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketplace.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `capacity: 3
retry_wait: 50ms
producers:
  - name: prod1
    products:
      - product: {type: Tea, name: Linden, price: 9}
        quantity: 2
        production_time: 10ms
consumers:
  - name: cons1
    carts:
      - - {type: add, product: {type: Tea, name: Linden, price: 9}, quantity: 1}
        - {type: remove, product: {type: Tea, name: Linden, price: 9}, quantity: 1}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Capacity)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryWait)
	assert.Equal(t, defaultRepublish, cfg.RepublishWait)
	assert.Equal(t, "memory", cfg.Receipts.Driver)
	assert.Equal(t, defaultWorkers, cfg.Receipts.Workers)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)

	linden := domain.Product{Type: "Tea", Name: "Linden", Price: 9}
	assert.Equal(t, []agent.ProductionStep{
		{Product: linden, Quantity: 2, ProductionTime: 10 * time.Millisecond},
	}, cfg.Producers[0].Steps())
	assert.Equal(t, [][]agent.Operation{{
		{Type: agent.OpAdd, Product: linden, Quantity: 1},
		{Type: agent.OpRemove, Product: linden, Quantity: 1},
	}}, cfg.Consumers[0].Operations())
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../marketplace.yml")
	require.NoError(t, err)
	assert.Len(t, cfg.Producers, 2)
	assert.Len(t, cfg.Consumers, 2)
	assert.Equal(t, "sqlite3", cfg.Receipts.Driver)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/marketplace.yml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "capacity: [1\n")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{Capacity: 1}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero capacity", func(c *Config) { c.Capacity = 0 }, "capacity must be at least 1"},
		{"negative wait", func(c *Config) { c.RetryWait = -time.Second }, "must not be negative"},
		{"unknown driver", func(c *Config) { c.Receipts.Driver = "postgres" }, "unsupported receipts driver"},
		{"sql without dsn", func(c *Config) { c.Receipts.Driver = "mysql" }, "requires a dsn"},
		{"producer without products", func(c *Config) {
			c.Producers = []ProducerSpec{{Name: "p"}}
		}, "at least one product"},
		{"bad quantity", func(c *Config) {
			c.Producers = []ProducerSpec{{Name: "p", Products: []ProductionSpec{{Product: domain.Product{Name: "x"}}}}}
		}, "quantity for x"},
		{"unknown operation", func(c *Config) {
			c.Consumers = []ConsumerSpec{{Name: "c", Carts: [][]OperationSpec{{{Type: "swap", Product: domain.Product{Name: "x"}, Quantity: 1}}}}}
		}, "unknown operation type 'swap'"},
		{"duplicate names", func(c *Config) {
			c.Producers = []ProducerSpec{{Name: "a", Products: []ProductionSpec{{Product: domain.Product{Name: "x"}, Quantity: 1}}}}
			c.Consumers = []ConsumerSpec{{Name: "a"}}
		}, "duplicate agent name 'a'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c := valid()
	assert.NoError(t, c.Validate())
}

func TestLoad_LogDefaults(t *testing.T) {
	path := writeConfig(t, `capacity: 1
log:
  file: marketplace.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "marketplace.log", cfg.Log.File)
	assert.Equal(t, 1, cfg.Log.MaxSizeMB)
	assert.Equal(t, 10, cfg.Log.MaxBackups)
}

func TestValidate_NegativeLogRotation(t *testing.T) {
	cfg := &Config{Capacity: 1, Log: LogConfig{MaxBackups: -1}}
	cfg.ApplyDefaults()
	assert.EqualError(t, cfg.Validate(), "log rotation limits must not be negative")
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/marketplace/internal/agent"
	"github.com/rl1809/marketplace/internal/core/domain"
)

const (
	defaultHTTPAddr    = ":8080"
	defaultGRPCAddr    = ":50051"
	defaultWorkers     = 4
	defaultQueueSize   = 1024
	defaultRetryWait   = 100 * time.Millisecond
	defaultRepublish   = 100 * time.Millisecond
	defaultStoreDriver = "memory"
	defaultLogSizeMB   = 1
	defaultLogBackups  = 10
)

// Config is the marketplace.yml file
type Config struct {
	Capacity      int            `yaml:"capacity"`       // Units a producer may have in circulation
	RetryWait     time.Duration  `yaml:"retry_wait"`     // Consumer wait after an unavailable product
	RepublishWait time.Duration  `yaml:"republish_wait"` // Producer wait after a rejected publish
	Server        ServerConfig   `yaml:"server"`
	Redis         RedisConfig    `yaml:"redis"`
	Receipts      ReceiptsConfig `yaml:"receipts"`
	Log           LogConfig      `yaml:"log"`
	Producers     []ProducerSpec `yaml:"producers,omitempty"`
	Consumers     []ConsumerSpec `yaml:"consumers,omitempty"`
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// RedisConfig enables the Redis stock cache when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	PoolSize int    `yaml:"pool_size,omitempty"`
}

type ReceiptsConfig struct {
	Driver    string `yaml:"driver"`        // memory, mysql or sqlite3
	DSN       string `yaml:"dsn,omitempty"` // mysql needs parseTime=true
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// LogConfig adds a rotating file that records every exchange call with UTC
// timestamps. Stderr logging is unaffected.
type LogConfig struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type ProducerSpec struct {
	Name     string           `yaml:"name"`
	Products []ProductionSpec `yaml:"products"`
}

type ProductionSpec struct {
	Product        domain.Product `yaml:"product"`
	Quantity       int            `yaml:"quantity"`
	ProductionTime time.Duration  `yaml:"production_time"`
}

type ConsumerSpec struct {
	Name  string            `yaml:"name"`
	Carts [][]OperationSpec `yaml:"carts"`
}

type OperationSpec struct {
	Type     string         `yaml:"type"`
	Product  domain.Product `yaml:"product"`
	Quantity int            `yaml:"quantity"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.RetryWait == 0 {
		c.RetryWait = defaultRetryWait
	}
	if c.RepublishWait == 0 {
		c.RepublishWait = defaultRepublish
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = defaultGRPCAddr
	}
	if c.Receipts.Driver == "" {
		c.Receipts.Driver = defaultStoreDriver
	}
	if c.Receipts.Workers == 0 {
		c.Receipts.Workers = defaultWorkers
	}
	if c.Receipts.QueueSize == 0 {
		c.Receipts.QueueSize = defaultQueueSize
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaultLogSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = defaultLogBackups
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.RetryWait < 0 || c.RepublishWait < 0 {
		return fmt.Errorf("wait intervals must not be negative")
	}

	switch c.Receipts.Driver {
	case "memory":
	case "mysql", "sqlite3":
		if c.Receipts.DSN == "" {
			return fmt.Errorf("receipts driver %s requires a dsn", c.Receipts.Driver)
		}
	default:
		return fmt.Errorf("unsupported receipts driver: %s (expected: memory, mysql, sqlite3)", c.Receipts.Driver)
	}
	if c.Receipts.Workers < 1 {
		return fmt.Errorf("receipts workers must be at least 1")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	names := make(map[string]bool)
	for i, p := range c.Producers {
		if err := p.validate(); err != nil {
			return fmt.Errorf("producer %d: %w", i, err)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate agent name '%s'", p.Name)
		}
		names[p.Name] = true
	}
	for i, cs := range c.Consumers {
		if err := cs.validate(); err != nil {
			return fmt.Errorf("consumer %d: %w", i, err)
		}
		if names[cs.Name] {
			return fmt.Errorf("duplicate agent name '%s'", cs.Name)
		}
		names[cs.Name] = true
	}
	return nil
}

func (p ProducerSpec) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Products) == 0 {
		return fmt.Errorf("%s: at least one product is required", p.Name)
	}
	for _, ps := range p.Products {
		if ps.Product.Name == "" {
			return fmt.Errorf("%s: product name is required", p.Name)
		}
		if ps.Quantity < 1 {
			return fmt.Errorf("%s: quantity for %s must be at least 1", p.Name, ps.Product.Name)
		}
		if ps.ProductionTime < 0 {
			return fmt.Errorf("%s: production_time for %s must not be negative", p.Name, ps.Product.Name)
		}
	}
	return nil
}

func (cs ConsumerSpec) validate() error {
	if cs.Name == "" {
		return fmt.Errorf("name is required")
	}
	for i, ops := range cs.Carts {
		for _, op := range ops {
			if op.Type != agent.OpAdd && op.Type != agent.OpRemove {
				return fmt.Errorf("%s: cart %d: unknown operation type '%s'", cs.Name, i, op.Type)
			}
			if op.Product.Name == "" {
				return fmt.Errorf("%s: cart %d: product name is required", cs.Name, i)
			}
			if op.Quantity < 1 {
				return fmt.Errorf("%s: cart %d: quantity must be at least 1", cs.Name, i)
			}
		}
	}
	return nil
}

// Steps converts the configured products into the producer agent's production list.
func (p ProducerSpec) Steps() []agent.ProductionStep {
	steps := make([]agent.ProductionStep, len(p.Products))
	for i, ps := range p.Products {
		steps[i] = agent.ProductionStep{
			Product:        ps.Product,
			Quantity:       ps.Quantity,
			ProductionTime: ps.ProductionTime,
		}
	}
	return steps
}

// Operations converts the configured carts into the consumer agent's cart scripts.
func (cs ConsumerSpec) Operations() [][]agent.Operation {
	carts := make([][]agent.Operation, len(cs.Carts))
	for i, ops := range cs.Carts {
		carts[i] = make([]agent.Operation, len(ops))
		for j, op := range ops {
			carts[i][j] = agent.Operation{Type: op.Type, Product: op.Product, Quantity: op.Quantity}
		}
	}
	return carts
}

package surrealmigrate

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/surrealdb/surrealmigrate/pkg/bulk"
	"github.com/surrealdb/surrealmigrate/pkg/store/surrealstore"
)

// Configuration validation errors
var (
	ErrMissingEndpoint     = errors.New("endpoint is required")
	ErrMissingNamespace    = errors.New("namespace is required")
	ErrMissingDatabase     = errors.New("database is required")
	ErrMissingContainer    = errors.New("container is required")
	ErrInvalidBatchSize    = fmt.Errorf("batch size must be between 1 and %d", bulk.MaxBatchSize)
	ErrInvalidPartitionKey = errors.New("partition key must be a dot separated field path")
	ErrInvalidRetries      = errors.New("max retries must be at least 1")
)

var fieldPathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// StoreConfig addresses one container.
type StoreConfig struct {
	Endpoint string
	Username string
	Password string

	Namespace string
	Database  string
	// Container is the table holding the documents.
	Container string
	// PartitionKey is the field deletes are addressed by. Empty means the
	// container is not partitioned and deletes match on id alone.
	PartitionKey string
}

func (c *StoreConfig) validate() error {
	switch {
	case c.Endpoint == "":
		return ErrMissingEndpoint
	case c.Namespace == "":
		return ErrMissingNamespace
	case c.Database == "":
		return ErrMissingDatabase
	case c.Container == "":
		return ErrMissingContainer
	case c.PartitionKey != "" && !fieldPathPattern.MatchString(c.PartitionKey):
		return fmt.Errorf("%w: %q", ErrInvalidPartitionKey, c.PartitionKey)
	}
	return nil
}

func (c *StoreConfig) surreal() surrealstore.Config {
	return surrealstore.Config{
		Endpoint:     c.Endpoint,
		Username:     c.Username,
		Password:     c.Password,
		Namespace:    c.Namespace,
		Database:     c.Database,
		Table:        c.Container,
		PartitionKey: c.PartitionKey,
	}
}

// Config holds all configuration for a migration run
type Config struct {
	// Target is the container the migration writes to.
	Target StoreConfig
	// Source, when set, is the container store inputs read from.
	// Defaults to Target.
	Source *StoreConfig

	// Bulk write settings

	BatchSize        int
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RetryAllFailures bool

	// Run options

	// AssumeYes answers every confirmation with yes
	AssumeYes bool
	// DryRun selects and plans without writing
	DryRun bool
	// BackupDir receives a backup of the documents an update or delete
	// is about to change. Empty disables backups.
	BackupDir string
	// LockFile prevents two runs sharing it from interleaving
	LockFile string
	// MetricsFile receives the bulk metrics in the text exposition format
	MetricsFile string

	LogFile  string
	LogLevel string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Target: StoreConfig{
			Endpoint:     "ws://localhost:8000",
			Username:     "root",
			Password:     "root",
			PartitionKey: "tenantId",
		},
		BatchSize:      bulk.MaxBatchSize,
		MaxRetries:     bulk.DefaultMaxRetries,
		InitialBackoff: bulk.DefaultInitialDelay,
		MaxBackoff:     bulk.DefaultMaxDelay,
		LogLevel:       "info",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Target.validate(); err != nil {
		return err
	}
	if c.Source != nil {
		if err := c.Source.validate(); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}
	if c.BatchSize < 1 || c.BatchSize > bulk.MaxBatchSize {
		return ErrInvalidBatchSize
	}
	if c.MaxRetries < 1 {
		return ErrInvalidRetries
	}
	return nil
}

func (c *Config) retryer() bulk.Retryer {
	r := bulk.NewExponentialBackoffRetryer()
	r.MaxRetries = c.MaxRetries
	if c.InitialBackoff > 0 {
		r.InitialDelay = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		r.MaxDelay = c.MaxBackoff
	}
	return r
}

package surrealmigrate

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
// Source store settings use EnvPrefix + "_SOURCE_".
const EnvPrefix = "SURREALMIGRATE"

// Configuration keys. Environment variables are the upper-cased key with
// EnvPrefix, flags the key with dashes.
const (
	KeyEndpoint         = "endpoint"
	KeyUsername         = "username"
	KeyPassword         = "password"
	KeyNamespace        = "namespace"
	KeyDatabase         = "database"
	KeyContainer        = "container"
	KeyPartitionKey     = "partition_key"
	KeyBatchSize        = "batch_size"
	KeyMaxRetries       = "max_retries"
	KeyInitialBackoff   = "initial_backoff"
	KeyMaxBackoff       = "max_backoff"
	KeyRetryAllFailures = "retry_all_failures"
	KeyYes              = "yes"
	KeyDryRun           = "dry_run"
	KeyBackupDir        = "backup_dir"
	KeyLockFile         = "lock_file"
	KeyMetricsFile      = "metrics_file"
	KeyLogFile          = "log_file"
	KeyLogLevel         = "log_level"

	sourcePrefix = "source."
)

var storeKeys = []string{
	KeyEndpoint, KeyUsername, KeyPassword, KeyNamespace, KeyDatabase, KeyContainer, KeyPartitionKey,
}

var runKeys = []string{
	KeyBatchSize, KeyMaxRetries, KeyInitialBackoff, KeyMaxBackoff, KeyRetryAllFailures,
	KeyYes, KeyDryRun, KeyBackupDir, KeyLockFile, KeyMetricsFile, KeyLogFile, KeyLogLevel,
}

// NewViper returns a viper instance reading SURREALMIGRATE_* environment
// variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadDotEnv loads the SURREALMIGRATE_* entries of the dotenv file at
// path into v as defaults, so the process environment and flags still
// take precedence. A missing file is ignored.
func ReadDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("env")
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	prefix := strings.ToLower(EnvPrefix) + "_"
	for _, name := range file.AllKeys() {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		key := rest
		if s, ok := strings.CutPrefix(rest, "source_"); ok {
			key = sourcePrefix + s
		}
		v.SetDefault(key, file.Get(name))
	}
	return nil
}

// FlagName returns the command line flag name of a configuration key.
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// BindFlags binds every flag of flags that is named after a
// configuration key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	keys := append(append([]string{}, storeKeys...), runKeys...)
	for _, k := range storeKeys {
		keys = append(keys, sourcePrefix+k)
	}
	for _, key := range keys {
		f := flags.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

// LoadConfig builds a Config from NewConfig defaults overridden by
// whatever v holds. Source is only set when a source key is present.
func LoadConfig(v *viper.Viper) *Config {
	c := NewConfig()
	loadStore(v, "", &c.Target)

	for _, k := range storeKeys {
		if v.IsSet(sourcePrefix + k) {
			source := c.Target
			loadStore(v, sourcePrefix, &source)
			c.Source = &source
			break
		}
	}

	if v.IsSet(KeyBatchSize) {
		c.BatchSize = v.GetInt(KeyBatchSize)
	}
	if v.IsSet(KeyMaxRetries) {
		c.MaxRetries = v.GetInt(KeyMaxRetries)
	}
	if v.IsSet(KeyInitialBackoff) {
		c.InitialBackoff = v.GetDuration(KeyInitialBackoff)
	}
	if v.IsSet(KeyMaxBackoff) {
		c.MaxBackoff = v.GetDuration(KeyMaxBackoff)
	}
	c.RetryAllFailures = v.GetBool(KeyRetryAllFailures)
	c.AssumeYes = v.GetBool(KeyYes)
	c.DryRun = v.GetBool(KeyDryRun)
	c.BackupDir = v.GetString(KeyBackupDir)
	c.LockFile = v.GetString(KeyLockFile)
	c.MetricsFile = v.GetString(KeyMetricsFile)
	c.LogFile = v.GetString(KeyLogFile)
	if v.IsSet(KeyLogLevel) {
		c.LogLevel = v.GetString(KeyLogLevel)
	}
	return c
}

func loadStore(v *viper.Viper, prefix string, c *StoreConfig) {
	fields := map[string]*string{
		KeyEndpoint:     &c.Endpoint,
		KeyUsername:     &c.Username,
		KeyPassword:     &c.Password,
		KeyNamespace:    &c.Namespace,
		KeyDatabase:     &c.Database,
		KeyContainer:    &c.Container,
		KeyPartitionKey: &c.PartitionKey,
	}
	for key, field := range fields {
		if v.IsSet(prefix + key) {
			*field = v.GetString(prefix + key)
		}
	}
}

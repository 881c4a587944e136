package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHPETL"

// DefaultEnvFile is loaded by Load when no env file is named and it exists
// in the working directory.
const DefaultEnvFile = ".env"

// Load reads the pipeline file at path (JSON, YAML or TOML, chosen by
// extension), applies environment overrides and returns the decoded
// Pipeline. envFile, when non-empty, must exist; its variables never
// replace ones already set in the process environment.
//
// Load does not validate; call ValidatePipeline on the result.
func Load(path, envFile string) (Pipeline, error) {
	var p Pipeline

	if err := loadEnvFile(envFile); err != nil {
		return p, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only consults keys viper already knows about; bind every
	// key of the model so env-only settings (a DSN kept out of the file)
	// still reach Unmarshal.
	for _, key := range keysOf(reflect.TypeOf(p), "") {
		if err := v.BindEnv(key); err != nil {
			return p, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return p, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&p); err != nil {
		return p, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
		return nil
	}
	if _, err := os.Stat(DefaultEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", DefaultEnvFile, err)
	}
	if err := godotenv.Load(DefaultEnvFile); err != nil {
		return fmt.Errorf("config: load env file %s: %w", DefaultEnvFile, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("enrich.srid", 4326)
	v.SetDefault("enrich.max_alternate_parts", 25)
	v.SetDefault("enrich.policy", "abort")
	v.SetDefault("runtime.batch_size", DefaultBatchSize)
	v.SetDefault("runtime.channel_buffer", DefaultChannelBuffer)
	v.SetDefault("runtime.notify_after", DefaultNotifyAfter)
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// keysOf lists the dotted viper keys of every leaf field of t, following
// mapstructure tags.
func keysOf(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, keysOf(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

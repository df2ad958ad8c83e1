package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvFileVar names the environment variable that points at a dotenv file to
// load before processing config structs.
const EnvFileVar = "SUPPORT_AGENT_ENV"

// Options tunes how New locates a dotenv file. When EnvFile is empty the
// path is taken from $SUPPORT_AGENT_ENV, then ./.env if one exists.
type Options struct {
	EnvFile string
}

// MustNew is New that panics on error. Intended for process startup.
func MustNew[T any](prefix string, opts ...Options) *T {
	conf, err := New[T](prefix, opts...)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the optional dotenv file into the process environment and then
// fills a T from environment variables via envconfig struct tags.
func New[T any](prefix string, opts ...Options) (*T, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	path := strings.TrimSpace(o.EnvFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvFileVar))
	}

	if path != "" {
		if err := exportEnvFile(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	} else if err := exportEnvFileIfExists(".env"); err != nil {
		return nil, fmt.Errorf("load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func exportEnvFileIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvFile(path)
}

// exportEnvFile promotes every key in the file to a real environment
// variable so envconfig sees one merged view.
func exportEnvFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for k, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

/*
 *
 * Copyright 2020-present Arpabet, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package beans

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

/**
@author Alex Shvid
*/

/**
Container configuration, usually loaded once at bootstrap by LoadConfig
*/
type Config struct {
	Verbose  bool   `yaml:"verbose"`
	LogLevel string `yaml:"logLevel"`

	/**
	Bound of concurrently running asynchronous observers, 0 means unbounded
	*/
	AsyncWorkers int `yaml:"asyncWorkers"`

	/**
	Ids of alternatives selected without priority
	*/
	EnabledAlternatives []string `yaml:"enabledAlternatives"`

	/**
	Interceptor binding without any matching interceptor is a definition error
	*/
	StrictBindings bool `yaml:"strictBindings"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		StrictBindings: true,
	}
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

/**
Reads YAML file if path is not empty, then applies BEANS_* environment variables.
Environment files are loaded first; missing default .env is not an error.

Example:
	cfg, err := beans.LoadConfig("beans.yaml")
*/
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrapf(err, "load env files %v", envFiles)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config '%s'", path)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (t *Config) applyEnv() error {
	if v, ok := os.LookupEnv("BEANS_VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "BEANS_VERBOSE")
		}
		t.Verbose = b
	}
	if v, ok := os.LookupEnv("BEANS_LOG_LEVEL"); ok {
		t.LogLevel = v
	}
	if v, ok := os.LookupEnv("BEANS_ASYNC_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "BEANS_ASYNC_WORKERS")
		}
		t.AsyncWorkers = n
	}
	if v, ok := os.LookupEnv("BEANS_ENABLED_ALTERNATIVES"); ok {
		t.EnabledAlternatives = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				t.EnabledAlternatives = append(t.EnabledAlternatives, id)
			}
		}
	}
	if v, ok := os.LookupEnv("BEANS_STRICT_BINDINGS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "BEANS_STRICT_BINDINGS")
		}
		t.StrictBindings = b
	}
	return nil
}

func (t *Config) validate() error {
	if t.AsyncWorkers < 0 {
		return errors.Errorf("negative asyncWorkers %d", t.AsyncWorkers)
	}
	if _, err := t.Level(); err != nil {
		return err
	}
	return nil
}

func (t *Config) Level() (zerolog.Level, error) {
	if t.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(t.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "log level '%s'", t.LogLevel)
	}
	return level, nil
}

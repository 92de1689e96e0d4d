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
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

/**
@author Alex Shvid
*/

type options struct {
	logger         zerolog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	executor       Executor
	contexts       []Context
	config         *Config
}

/**
Option configures container on creation
*/
type Option func(*options) error

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

/**
Registers container metrics, use separate registry per container in tests
*/
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = registerer
		return nil
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		o.tracerProvider = tp
		return nil
	}
}

/**
Executor for asynchronous observers, goroutine per notification by default
*/
func WithExecutor(executor Executor) Option {
	return func(o *options) error {
		o.executor = executor
		return nil
	}
}

/**
Adds context of the custom scope
*/
func WithContext(ctx Context) Option {
	return func(o *options) error {
		o.contexts = append(o.contexts, ctx)
		return nil
	}
}

func WithConfig(cfg *Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("null config is not allowed")
		}
		if err := cfg.validate(); err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

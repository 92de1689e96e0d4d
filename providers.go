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
	"github.com/google/wire"
	"github.com/rs/zerolog"
)

/**
@author Alex Shvid
*/

/**
Providers for hosts assembled with wire, the registry and config come from the host
*/
var ProviderSet = wire.NewSet(ProvideContainer)

/**
Creates container, cleanup closes it
*/
func ProvideContainer(registry *Registry, cfg *Config, logger zerolog.Logger) (Container, func(), error) {
	c, err := Create(registry, WithConfig(cfg), WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("close container")
		}
	}
	return c, cleanup, nil
}

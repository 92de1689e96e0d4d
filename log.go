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
	"github.com/rs/zerolog"
)

/**
@author Alex Shvid
*/

/**
Debug tracing of registration and resolution for all registries and containers,
Config.Verbose turns it on for one container only
*/
var Verbose = false

var log = zerolog.Nop()

/**
Sets package logger used by registry and resolver, containers take their own logger from options.
Call before building registries.
*/
func SetLogger(logger zerolog.Logger) {
	log = logger.With().Str("component", "beans").Logger()
}

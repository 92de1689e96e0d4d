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

package web

import (
	"net/http"

	"github.com/consensusdb/beans"
	"github.com/rs/zerolog"
)

/**
@author Alex Shvid
*/

/**
Middleware that activates request context for each HTTP request and terminates it when the handler returns.

Example:
	r := chi.NewRouter()
	r.Use(web.RequestScope(container))
*/
func RequestScope(c beans.Container) func(http.Handler) http.Handler {
	rc := c.RequestContext()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, state := rc.Activate(r.Context())
			defer func() {
				if err := rc.Terminate(ctx); err != nil {
					zerolog.Ctx(r.Context()).Error().Err(err).Str("state", state.ID()).Msg("terminate request context")
				}
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

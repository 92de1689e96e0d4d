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
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

/**
@author Alex Shvid
*/

type resolutionKey struct {
	typ        reflect.Type
	qualifiers string
}

type resolution struct {
	bean *Bean
	err  error
}

/**
Resolver performs typesafe resolution against sealed registry
*/
type Resolver struct {
	registry *Registry

	/**
	Cache of resolutions, key is resolutionKey, value is *resolution
	*/
	cache sync.Map

	/**
	Cache of observer lists, key is resolutionKey of payload type, value is []*ObserverMethod
	*/
	observerCache sync.Map

	verbose bool
	logger  zerolog.Logger
}

func NewResolver(registry *Registry) (*Resolver, error) {
	if !registry.Sealed() {
		return nil, ErrNotSealed
	}
	return &Resolver{registry: registry, verbose: Verbose, logger: log}, nil
}

/**
Turns on debug tracing of resolutions to the logger
*/
func (t *Resolver) trace(logger zerolog.Logger) {
	t.verbose = true
	t.logger = logger
}

/**
Tie-break: enabled alternatives win over other beans, then the highest priority wins.
Returns more than one bean if tie-break does not select a single one.
*/
func choose(candidates []*Bean) []*Bean {
	if len(candidates) < 2 {
		return candidates
	}
	var alternatives []*Bean
	for _, b := range candidates {
		if b.alternative {
			alternatives = append(alternatives, b)
		}
	}
	if len(alternatives) > 0 {
		candidates = alternatives
	}
	if len(candidates) < 2 {
		return candidates
	}
	var best []*Bean
	top, found := 0, false
	for _, b := range candidates {
		p, ok := b.Priority()
		if !ok {
			continue
		}
		switch {
		case !found || p > top:
			top, found = p, true
			best = []*Bean{b}
		case p == top:
			best = append(best, b)
		}
	}
	if found {
		return best
	}
	return candidates
}

/**
Resolves injection point to exactly one bean
*/
func (t *Resolver) Resolve(ip InjectionPoint) (*Bean, error) {
	requiredBy := ""
	if ip.Bean != nil {
		requiredBy = ip.String()
	}
	b, err := t.resolve(ip.Type, requiredQualifiers(ip.Qualifiers))
	if err != nil && requiredBy != "" {
		switch e := err.(type) {
		case *UnsatisfiedResolutionError:
			cp := *e
			cp.Required = requiredBy
			return nil, &cp
		case *AmbiguousResolutionError:
			cp := *e
			cp.Required = requiredBy
			return nil, &cp
		}
	}
	return b, err
}

func (t *Resolver) resolve(typ reflect.Type, required qualifiers) (*Bean, error) {
	key := resolutionKey{typ: typ, qualifiers: required.key()}
	if r, ok := t.cache.Load(key); ok {
		res := r.(*resolution)
		return res.bean, res.err
	}
	res := new(resolution)
	candidates := t.registry.lookup(typ, required)
	switch len(candidates) {
	case 0:
		res.err = &UnsatisfiedResolutionError{Type: typ, Qualifiers: required}
	case 1:
		res.bean = candidates[0]
	default:
		if selected := choose(candidates); len(selected) == 1 {
			res.bean = selected[0]
		} else {
			res.err = &AmbiguousResolutionError{Type: typ, Qualifiers: required, Candidates: beanIDs(selected)}
		}
	}
	t.cache.Store(key, res)
	if t.verbose {
		if res.err != nil {
			t.logger.Debug().Stringer("type", typ).Str("qualifiers", key.qualifiers).Err(res.err).Msg("resolve")
		} else {
			t.logger.Debug().Stringer("type", typ).Str("qualifiers", key.qualifiers).Str("bean", res.bean.id).Msg("resolve")
		}
	}
	return res.bean, res.err
}

/**
All candidates for the type and qualifiers without tie-break
*/
func (t *Resolver) ResolveAll(typ reflect.Type, required ...Qualifier) []*Bean {
	return t.registry.lookup(typ, requiredQualifiers(required))
}

/**
Interceptors whose bindings are all present in the given bindings,
ordered by ascending priority, ties by registration order
*/
func (t *Resolver) ResolveInterceptors(bindings []Qualifier) []*Bean {
	if len(bindings) == 0 {
		return nil
	}
	var res []*Bean
	for _, i := range t.registry.Interceptors() {
		if i.enabled && qualifiers(bindings).containsAll(i.bindings) {
			res = append(res, i)
		}
	}
	sortByPriority(res)
	return res
}

/**
Decorators applicable to the bean, the first one in the list is the outermost
*/
func (t *Resolver) ResolveDecorators(b *Bean) []*Bean {
	if b.kind != KindBean {
		return nil
	}
	var res []*Bean
	for _, d := range t.registry.Decorators() {
		if !d.enabled {
			continue
		}
		for _, typ := range d.types {
			if b.hasType(typ) && b.qualifiers.containsAll(d.qualifiers) {
				res = append(res, d)
				break
			}
		}
	}
	sortByPriority(res)
	return res
}

/**
Observers of the payload type or any of its supertypes, with qualifiers present in the event
*/
func (t *Resolver) ResolveObservers(payloadType reflect.Type, event []Qualifier) []*ObserverMethod {
	eventQualifiers := normalizeQualifiers(event)
	key := resolutionKey{typ: payloadType, qualifiers: eventQualifiers.key()}
	if list, ok := t.observerCache.Load(key); ok {
		return list.([]*ObserverMethod)
	}
	var res []*ObserverMethod
	for _, obs := range t.registry.Observers() {
		if assignable(obs.ObservedType, payloadType) && eventQualifiers.containsAll(obs.Qualifiers) {
			res = append(res, obs)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if *res[i].Priority != *res[j].Priority {
			return *res[i].Priority < *res[j].Priority
		}
		return res[i].order < res[j].order
	})
	t.observerCache.Store(key, res)
	return res
}

func assignable(observed, payload reflect.Type) bool {
	if observed == payload {
		return true
	}
	return observed.Kind() == reflect.Interface && payload.Implements(observed)
}

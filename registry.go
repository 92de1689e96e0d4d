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

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
Registry is the index of bean definitions.
Definitions are registered on the single-threaded build phase, after Seal the registry is read-only.
*/
type Registry struct {
	sync.RWMutex
	sealed bool

	/**
	All beans in registration order
	*/
	beans     []*Bean
	beansByID map[string]*Bean

	/**
	Fast search of enabled beans by declared type
	*/
	beansByType map[reflect.Type][]*Bean

	interceptors []*Bean
	decorators   []*Bean

	observers     []*ObserverMethod
	observersByID map[string]*ObserverMethod

	selectedAlternatives map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		beansByID:            make(map[string]*Bean),
		beansByType:          make(map[reflect.Type][]*Bean),
		observersByID:        make(map[string]*ObserverMethod),
		selectedAlternatives: make(map[string]bool),
	}
}

func (t *Registry) Register(def *Definition) error {
	if def == nil {
		return errors.New("null definition is not allowed")
	}
	t.Lock()
	defer t.Unlock()
	if t.sealed {
		return errors.Wrapf(ErrSealed, "register bean '%s'", def.ID)
	}
	if def.ID == "" {
		return errors.Errorf("empty bean id on position %d", len(t.beans))
	}
	if already, ok := t.beansByID[def.ID]; ok {
		return errors.Errorf("repeated bean id '%s' on position %d, registered as %v", def.ID, len(t.beans), already)
	}
	if def.Factory == nil {
		return errors.Errorf("bean '%s' has no factory", def.ID)
	}
	for i, typ := range def.Types {
		if typ == nil {
			return errors.Errorf("null type on position %d in bean '%s'", i, def.ID)
		}
	}
	for i, ip := range def.InjectionPoints {
		if ip.Type == nil {
			return errors.Errorf("null type of injection point on position %d in bean '%s'", i, def.ID)
		}
	}
	switch def.Kind {
	case KindBean:
		if len(def.Types) == 0 {
			return errors.Errorf("bean '%s' declares no types", def.ID)
		}
	case KindInterceptor:
		if len(def.InterceptorBindings) == 0 {
			return errors.Errorf("interceptor '%s' declares no interceptor bindings", def.ID)
		}
	case KindDecorator:
		if len(def.Types) == 0 {
			return errors.Errorf("decorator '%s' declares no decorated types", def.ID)
		}
		for _, typ := range def.Types {
			if typ.Kind() != reflect.Interface {
				return errors.Errorf("decorator '%s' decorates non-interface type '%v'", def.ID, typ)
			}
		}
	default:
		return errors.Errorf("unknown kind %v of bean '%s'", def.Kind, def.ID)
	}
	if def.Kind != KindBean && def.Scope != "" && def.Scope != Dependent {
		return errors.Errorf("%v '%s' must be dependent, declared scope '%s'", def.Kind, def.ID, def.Scope)
	}

	b := newBean(def, len(t.beans))
	t.beans = append(t.beans, b)
	t.beansByID[b.id] = b
	if Verbose {
		log.Debug().Str("bean", b.id).Str("scope", string(b.scope)).Stringer("kind", b.kind).Msg("register")
	}
	return nil
}

/**
Select alternatives without priority, like beans.xml does
*/
func (t *Registry) SelectAlternatives(ids ...string) error {
	t.Lock()
	defer t.Unlock()
	if t.sealed {
		return errors.Wrap(ErrSealed, "select alternatives")
	}
	for _, id := range ids {
		t.selectedAlternatives[id] = true
	}
	return nil
}

func (t *Registry) RegisterObserver(observer ObserverMethod) error {
	t.Lock()
	defer t.Unlock()
	if t.sealed {
		return errors.Wrapf(ErrSealed, "register observer '%s'", observer.ID)
	}
	if observer.ID == "" {
		return errors.Errorf("empty observer id on position %d", len(t.observers))
	}
	if _, ok := t.observersByID[observer.ID]; ok {
		return errors.Errorf("repeated observer id '%s'", observer.ID)
	}
	if observer.ObservedType == nil {
		return errors.Errorf("observer '%s' has no observed type", observer.ID)
	}
	if observer.Notify == nil {
		return errors.Errorf("observer '%s' has no notify function", observer.ID)
	}
	obs := observer
	obs.Qualifiers = append([]Qualifier(nil), observer.Qualifiers...)
	if obs.Priority == nil {
		obs.Priority = Priority(DefaultObserverPriority)
	}
	obs.order = len(t.observers)
	t.observers = append(t.observers, &obs)
	t.observersByID[obs.ID] = &obs
	return nil
}

/**
Seal builds the indexes and reports indistinguishable definitions.
Registry is read-only after this call, repeated calls do nothing.
*/
func (t *Registry) Seal() error {
	t.Lock()
	defer t.Unlock()
	if t.sealed {
		return nil
	}

	var problems []error
	for id := range t.selectedAlternatives {
		b, ok := t.beansByID[id]
		if !ok {
			problems = append(problems, errors.Errorf("selected alternative '%s' is not registered", id))
			continue
		}
		if !b.alternative {
			problems = append(problems, errors.Errorf("selected bean '%s' is not an alternative", id))
			continue
		}
		b.enabled = true
	}

	for _, obs := range t.observers {
		if obs.BeanID == "" {
			continue
		}
		if _, ok := t.beansByID[obs.BeanID]; !ok {
			problems = append(problems, errors.Errorf("observer '%s' declared on unknown bean '%s'", obs.ID, obs.BeanID))
		}
	}

	// indexes are published only on success
	beansByType := make(map[reflect.Type][]*Bean)
	var interceptors, decorators []*Bean
	groups := make(map[string][]*Bean)
	var keys []string
	for _, b := range t.beans {
		switch b.kind {
		case KindInterceptor:
			interceptors = append(interceptors, b)
			continue
		case KindDecorator:
			decorators = append(decorators, b)
			continue
		}
		if !b.enabled {
			continue
		}
		for _, typ := range b.types {
			beansByType[typ] = append(beansByType[typ], b)
		}
		key := b.typesKey() + "|" + b.qualifiers.key() + "|" + string(b.scope)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], b)
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		if selected := choose(group); len(selected) != 1 {
			problems = append(problems, &AmbiguousResolutionError{
				Type:       group[0].types[0],
				Qualifiers: group[0].qualifiers,
				Candidates: beanIDs(selected),
				Required:   "identical definitions",
			})
		}
	}

	if len(problems) > 0 {
		return &DefinitionError{Problems: problems}
	}
	t.beansByType = beansByType
	t.interceptors = interceptors
	t.decorators = decorators
	t.sealed = true
	return nil
}

func (t *Registry) Sealed() bool {
	t.RLock()
	defer t.RUnlock()
	return t.sealed
}

/**
Returns all enabled beans that declare the type and carry all required qualifiers.
No tie-break is applied, order is the registration order.
*/
func (t *Registry) Lookup(typ reflect.Type, required ...Qualifier) []*Bean {
	return t.lookup(typ, requiredQualifiers(required))
}

func (t *Registry) lookup(typ reflect.Type, required qualifiers) []*Bean {
	t.RLock()
	defer t.RUnlock()
	var res []*Bean
	for _, b := range t.beansByType[typ] {
		if b.matches(typ, required) {
			res = append(res, b)
		}
	}
	return res
}

func (t *Registry) Bean(id string) (*Bean, bool) {
	t.RLock()
	defer t.RUnlock()
	b, ok := t.beansByID[id]
	return b, ok
}

func (t *Registry) Beans() []*Bean {
	t.RLock()
	defer t.RUnlock()
	return append([]*Bean(nil), t.beans...)
}

func (t *Registry) Interceptors() []*Bean {
	t.RLock()
	defer t.RUnlock()
	return append([]*Bean(nil), t.interceptors...)
}

func (t *Registry) Decorators() []*Bean {
	t.RLock()
	defer t.RUnlock()
	return append([]*Bean(nil), t.decorators...)
}

func (t *Registry) Observers() []*ObserverMethod {
	t.RLock()
	defer t.RUnlock()
	return append([]*ObserverMethod(nil), t.observers...)
}

func beanIDs(list []*Bean) []string {
	ids := make([]string, len(list))
	for i, b := range list {
		ids[i] = b.id
	}
	return ids
}

/**
Stable order by ascending priority, beans without priority go last, ties by registration order
*/
func sortByPriority(list []*Bean) {
	sort.SliceStable(list, func(i, j int) bool {
		pi, oki := list[i].Priority()
		pj, okj := list[j].Priority()
		if oki != okj {
			return oki
		}
		if pi != pj {
			return pi < pj
		}
		return list[i].order < list[j].order
	})
}

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
)

/**
@author Alex Shvid
*/

/**
Definition-time validation: injection points, interceptor bindings, decorators, observers and cycles
*/
func (t *container) validate() error {
	var problems []error
	for _, b := range t.registry.Beans() {
		if !b.enabled {
			continue
		}
		if _, ok := t.contexts[b.scope]; !ok {
			problems = append(problems, errors.Errorf("no context for scope '%s' of bean '%s'", b.scope, b.id))
		}
		for _, ip := range b.injectionPoints {
			if ip.Type == InjectionPointType {
				if b.scope != Dependent {
					problems = append(problems, errors.Errorf("bean '%s' with scope '%s' can not inject injection point metadata", b.id, b.scope))
				}
				continue
			}
			if ip.Provider {
				continue
			}
			if _, err := t.resolver.Resolve(ip); err != nil {
				problems = append(problems, err)
			}
		}
		if b.kind != KindBean {
			continue
		}
		chain := &InterceptorChain{BeanID: b.id}
		if len(b.bindings) > 0 {
			chain.Interceptors = t.resolver.ResolveInterceptors(b.bindings)
			if len(chain.Interceptors) == 0 && t.config.StrictBindings {
				problems = append(problems, &UnsatisfiedResolutionError{
					Type:       InterceptorClass,
					Qualifiers: b.bindings,
					Required:   "interceptor bindings of bean '" + b.id + "'",
				})
			}
		}
		chain.Decorators = t.resolver.ResolveDecorators(b)
		if len(chain.Interceptors) > 0 || len(chain.Decorators) > 0 {
			t.chains[b.id] = chain
		}
	}

	for _, obs := range t.registry.Observers() {
		if obs.BeanID == "" {
			continue
		}
		b, _ := t.registry.Bean(obs.BeanID)
		if b.kind != KindBean {
			problems = append(problems, errors.Errorf("observer '%s' declared on %v '%s'", obs.ID, b.kind, b.id))
			continue
		}
		if !b.enabled {
			problems = append(problems, errors.Errorf("observer '%s' declared on disabled alternative '%s'", obs.ID, b.id))
			continue
		}
		if obs.Reception == IfExists && b.scope == Dependent {
			problems = append(problems, errors.Errorf("conditional observer '%s' declared on dependent bean '%s'", obs.ID, b.id))
		}
	}

	problems = append(problems, t.detectCycles()...)

	if len(problems) > 0 {
		return &DefinitionError{Problems: problems}
	}
	return nil
}

/**
Beans that have to exist before the instance of b can be created.
Normal scoped beans are injected through client proxy and break the dependency.
*/
func (t *container) edges(b *Bean) []*Bean {
	var res []*Bean
	for _, ip := range b.injectionPoints {
		if ip.Provider || ip.Type == InjectionPointType {
			continue
		}
		d, err := t.resolver.Resolve(ip)
		if err != nil || t.isNormal(d) {
			continue
		}
		res = append(res, d)
	}
	if chain, ok := t.chains[b.id]; ok {
		res = append(res, chain.Interceptors...)
		res = append(res, chain.Decorators...)
	}
	return res
}

func (t *container) detectCycles() []error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[*Bean]int)
	var stack []*Bean
	var problems []error

	var visit func(b *Bean)
	visit = func(b *Bean) {
		color[b] = gray
		stack = append(stack, b)
		for _, d := range t.edges(b) {
			switch color[d] {
			case white:
				visit(d)
			case gray:
				var path []string
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == d {
						for _, s := range stack[i:] {
							path = append(path, s.id)
						}
						break
					}
				}
				problems = append(problems, &CircularDependencyError{Path: append(path, d.id)})
			}
		}
		stack = stack[:len(stack)-1]
		color[b] = black
	}

	for _, b := range t.registry.Beans() {
		if b.enabled && color[b] == white {
			visit(b)
		}
	}
	return problems
}

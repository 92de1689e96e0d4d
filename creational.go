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
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
CreationalContext carries everything the factory needs to build an instance
and collects dependent objects that are destroyed together with it.
*/
type CreationalContext struct {
	ctx            context.Context
	bean           *Bean
	injectionPoint *InjectionPoint
	dependencies   []interface{}
	delegate       interface{}

	mu         sync.Mutex
	dependents []*ContextualInstance
}

func newCreationalContext(b *Bean, ip *InjectionPoint) *CreationalContext {
	return &CreationalContext{bean: b, injectionPoint: ip}
}

/**
Context of the resolution, pass it to handles used by the factory
*/
func (t *CreationalContext) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

/**
Bean under construction, nil for the creational context of the raw lookup
*/
func (t *CreationalContext) Bean() *Bean {
	return t.bean
}

/**
Reference resolved for the injection point on position i of the bean definition
*/
func (t *CreationalContext) Dependency(i int) interface{} {
	if i < 0 || i >= len(t.dependencies) {
		return nil
	}
	return t.dependencies[i]
}

func (t *CreationalContext) Dependencies() []interface{} {
	return append([]interface{}(nil), t.dependencies...)
}

/**
Next link of the decorator chain, available only for decorators
*/
func (t *CreationalContext) Delegate() interface{} {
	return t.delegate
}

/**
Injection point that receives the dependent instance under construction
*/
func (t *CreationalContext) InjectionPoint() (InjectionPoint, bool) {
	if t.injectionPoint == nil {
		return InjectionPoint{}, false
	}
	return *t.injectionPoint, true
}

func (t *CreationalContext) addDependent(ci *ContextualInstance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dependents = append(t.dependents, ci)
}

func (t *CreationalContext) removeDependent(ci *ContextualInstance) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, d := range t.dependents {
		if d == ci {
			t.dependents = append(t.dependents[:i], t.dependents[i+1:]...)
			return true
		}
	}
	return false
}

func (t *CreationalContext) findDependent(ref interface{}) *ContextualInstance {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.dependents {
		if sameReference(d.ref, ref) || sameReference(d.instance, ref) {
			return d
		}
	}
	return nil
}

/**
Destroys dependent objects in reverse order of creation
*/
func (t *CreationalContext) release() error {
	t.mu.Lock()
	list := t.dependents
	t.dependents = nil
	t.mu.Unlock()
	var err []error
	for i := len(list) - 1; i >= 0; i-- {
		if e := list[i].Destroy(); e != nil {
			err = append(err, e)
		}
	}
	return combine(err)
}

func sameReference(a, b interface{}) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

/**
ContextualInstance is an instance of the bean owned by the context of its scope
*/
type ContextualInstance struct {
	bean *Bean

	/**
	Instance produced by the factory
	*/
	instance interface{}

	/**
	Outermost decorator or the instance itself
	*/
	decorated interface{}

	/**
	Reference handed out for injection of pseudo-scoped beans
	*/
	ref interface{}

	interceptors []Interceptor
	cc           *CreationalContext
	container    *container

	destroyOnce sync.Once
	destroyErr  error
	destroyed   atomic.Bool
}

func (t *ContextualInstance) Bean() *Bean {
	return t.bean
}

func (t *ContextualInstance) BeanID() string {
	return t.bean.id
}

func (t *ContextualInstance) Instance() interface{} {
	return t.instance
}

func (t *ContextualInstance) Decorated() interface{} {
	return t.decorated
}

func (t *ContextualInstance) Destroyed() bool {
	return t.destroyed.Load()
}

/**
Destroys instance exactly once: DisposableBean callback, factory destroy, then dependent objects.
Repeated calls return the result of the first one.
*/
func (t *ContextualInstance) Destroy() error {
	t.destroyOnce.Do(func() {
		t.destroyed.Store(true)
		var err []error
		if d, ok := t.instance.(DisposableBean); ok {
			if e := d.Destroy(); e != nil {
				err = append(err, errors.Wrapf(e, "destroy bean '%s'", t.bean.id))
			}
		}
		if e := t.bean.factory.Destroy(t.instance, t.cc); e != nil {
			err = append(err, errors.Wrapf(e, "factory destroy of bean '%s'", t.bean.id))
		}
		if e := t.cc.release(); e != nil {
			err = append(err, e)
		}
		if t.container != nil {
			t.container.instanceDestroyed(t)
		}
		t.destroyErr = combine(err)
	})
	return t.destroyErr
}

type creationalKey struct{}

/**
Creational context of the bean that owns dependent objects created down the call
*/
func withCreational(ctx context.Context, cc *CreationalContext) context.Context {
	return context.WithValue(ctx, creationalKey{}, cc)
}

func creationalFrom(ctx context.Context) *CreationalContext {
	cc, _ := ctx.Value(creationalKey{}).(*CreationalContext)
	return cc
}

type resolutionChain struct {
	bean *Bean
	prev *resolutionChain
}

type chainKey struct{}

func withChain(ctx context.Context, b *Bean) context.Context {
	prev, _ := ctx.Value(chainKey{}).(*resolutionChain)
	return context.WithValue(ctx, chainKey{}, &resolutionChain{bean: b, prev: prev})
}

/**
Returns the cycle path if the bean is already under construction in this resolution chain
*/
func cycleOf(ctx context.Context, b *Bean) []string {
	link, _ := ctx.Value(chainKey{}).(*resolutionChain)
	var path []string
	for ; link != nil; link = link.prev {
		path = append(path, link.bean.id)
		if link.bean == b {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return append(path, b.id)
		}
	}
	return nil
}

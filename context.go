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
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
Creates contextual instance, called at most once per bean and context instance for normal scopes
*/
type CreateFunc func(ctx context.Context) (*ContextualInstance, error)

/**
Context owns contextual instances of one scope
*/
type Context interface {

	Scope() Scope

	/**
	Normal scoped beans are injected through client proxy
	*/
	Normal() bool

	IsActive(ctx context.Context) bool

	/**
	Returns existing instance or nil
	*/
	Get(ctx context.Context, beanID string) (*ContextualInstance, error)

	/**
	Returns existing instance or creates a new one, racing callers get the same instance
	*/
	GetOrCreate(ctx context.Context, beanID string, create CreateFunc) (*ContextualInstance, error)

	/**
	Destroys instance of the bean if exists
	*/
	Destroy(ctx context.Context, beanID string) error
}

/**
Context that can be activated and terminated by the host at the boundaries of the unit of work
*/
type ManagedContext interface {
	Context

	/**
	Activates new state and binds it to the returned context
	*/
	Activate(ctx context.Context) (context.Context, *ContextState)

	/**
	Binds existing state, for example to continue the unit of work on another goroutine
	*/
	ActivateState(ctx context.Context, state *ContextState) (context.Context, error)

	State(ctx context.Context) (*ContextState, bool)

	/**
	Deactivates bound state without destroying instances, no-op if not active
	*/
	Deactivate(ctx context.Context)

	/**
	Destroys all instances of the bound state and deactivates it
	*/
	Terminate(ctx context.Context) error
}

var errStoreClosed = errors.New("store is closed")

type slot struct {
	sync.Mutex
	instance atomic.Pointer[ContextualInstance]
}

/**
Storage of contextual instances with create-once per key
*/
type store struct {
	slots  sync.Map // key is bean id, value is *slot
	closed atomic.Bool

	mu    sync.Mutex
	order []string
}

func (t *store) get(beanID string) *ContextualInstance {
	if s, ok := t.slots.Load(beanID); ok {
		return s.(*slot).instance.Load()
	}
	return nil
}

func (t *store) getOrCreate(ctx context.Context, beanID string, create CreateFunc) (*ContextualInstance, error) {
	if t.closed.Load() {
		return nil, errStoreClosed
	}
	v, _ := t.slots.LoadOrStore(beanID, new(slot))
	s := v.(*slot)
	if ci := s.instance.Load(); ci != nil {
		return ci, nil
	}
	ci, created, err := s.getOrCreate(ctx, create)
	if err != nil {
		return nil, err
	}
	if created {
		t.mu.Lock()
		t.order = append(t.order, beanID)
		t.mu.Unlock()
	}
	if t.closed.Load() {
		// lost the race with destroyAll
		t.destroy(beanID)
		return nil, errStoreClosed
	}
	return ci, nil
}

/**
Slot stays empty and unlocked if create fails or panics, the next caller retries
*/
func (t *slot) getOrCreate(ctx context.Context, create CreateFunc) (*ContextualInstance, bool, error) {
	t.Lock()
	defer t.Unlock()
	if ci := t.instance.Load(); ci != nil {
		return ci, false, nil
	}
	ci, err := create(ctx)
	if err != nil {
		return nil, false, err
	}
	t.instance.Store(ci)
	return ci, true, nil
}

func (t *store) remove(beanID string) *ContextualInstance {
	v, ok := t.slots.Load(beanID)
	if !ok {
		return nil
	}
	s := v.(*slot)
	s.Lock()
	ci := s.instance.Swap(nil)
	s.Unlock()
	if ci != nil {
		t.mu.Lock()
		for i, id := range t.order {
			if id == beanID {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
		t.mu.Unlock()
	}
	return ci
}

func (t *store) destroy(beanID string) error {
	if ci := t.remove(beanID); ci != nil {
		return ci.Destroy()
	}
	return nil
}

/**
Closes the store and destroys instances in reverse order of creation
*/
func (t *store) destroyAll() error {
	t.closed.Store(true)
	t.mu.Lock()
	ids := append([]string(nil), t.order...)
	t.mu.Unlock()
	var err []error
	for i := len(ids) - 1; i >= 0; i-- {
		if e := t.destroy(ids[i]); e != nil {
			err = append(err, e)
		}
	}
	return combine(err)
}

func (t *store) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

/**
Context created on startup and destroyed on shutdown, used by application and singleton scopes
*/
type sharedContext struct {
	scope  Scope
	normal bool
	store  store
}

func newSharedContext(scope Scope, normal bool) *sharedContext {
	return &sharedContext{scope: scope, normal: normal}
}

func (t *sharedContext) Scope() Scope {
	return t.scope
}

func (t *sharedContext) Normal() bool {
	return t.normal
}

func (t *sharedContext) IsActive(context.Context) bool {
	return !t.store.closed.Load()
}

func (t *sharedContext) Get(_ context.Context, beanID string) (*ContextualInstance, error) {
	if t.store.closed.Load() {
		return nil, &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	return t.store.get(beanID), nil
}

func (t *sharedContext) GetOrCreate(ctx context.Context, beanID string, create CreateFunc) (*ContextualInstance, error) {
	ci, err := t.store.getOrCreate(ctx, beanID, create)
	if err == errStoreClosed {
		return nil, &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	return ci, err
}

func (t *sharedContext) Destroy(_ context.Context, beanID string) error {
	return t.store.destroy(beanID)
}

func (t *sharedContext) close() error {
	return t.store.destroyAll()
}

/**
Dependent pseudo-scope: never reuses instances, each one is owned by the creational context of its creator
*/
type dependentContext struct{}

func (dependentContext) Scope() Scope {
	return Dependent
}

func (dependentContext) Normal() bool {
	return false
}

func (dependentContext) IsActive(context.Context) bool {
	return true
}

func (dependentContext) Get(context.Context, string) (*ContextualInstance, error) {
	return nil, nil
}

func (dependentContext) GetOrCreate(ctx context.Context, _ string, create CreateFunc) (*ContextualInstance, error) {
	ci, err := create(ctx)
	if err != nil {
		return nil, err
	}
	if owner := creationalFrom(ctx); owner != nil {
		owner.addDependent(ci)
	}
	return ci, nil
}

func (dependentContext) Destroy(context.Context, string) error {
	return nil
}

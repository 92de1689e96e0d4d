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
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
ContextState holds contextual instances of one unit of work, e.g. one request
*/
type ContextState struct {
	id         string
	store      store
	active     atomic.Bool
	terminated atomic.Bool
}

func (t *ContextState) ID() string {
	return t.id
}

func (t *ContextState) IsActive() bool {
	return t.active.Load()
}

func (t *ContextState) IsTerminated() bool {
	return t.terminated.Load()
}

/**
Number of live instances
*/
func (t *ContextState) Size() int {
	return t.store.size()
}

type stateKey struct {
	scope Scope
}

/**
Normal scoped context bound to context.Context.
Activation nests: activating on a context that already carries a state shadows it
until the returned context goes out of use.
*/
type requestContext struct {
	scope Scope
}

/**
Creates managed context for the request-like scope, built-in Request scope uses the same implementation
*/
func NewRequestContext(scope Scope) ManagedContext {
	return &requestContext{scope: scope}
}

func (t *requestContext) Scope() Scope {
	return t.scope
}

func (t *requestContext) Normal() bool {
	return true
}

func (t *requestContext) State(ctx context.Context) (*ContextState, bool) {
	st, ok := ctx.Value(stateKey{t.scope}).(*ContextState)
	return st, ok && st != nil
}

func (t *requestContext) active(ctx context.Context) (*ContextState, bool) {
	st, ok := t.State(ctx)
	if !ok || !st.active.Load() {
		return nil, false
	}
	return st, true
}

func (t *requestContext) IsActive(ctx context.Context) bool {
	_, ok := t.active(ctx)
	return ok
}

func (t *requestContext) Get(ctx context.Context, beanID string) (*ContextualInstance, error) {
	st, ok := t.active(ctx)
	if !ok {
		return nil, &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	return st.store.get(beanID), nil
}

func (t *requestContext) GetOrCreate(ctx context.Context, beanID string, create CreateFunc) (*ContextualInstance, error) {
	st, ok := t.active(ctx)
	if !ok {
		return nil, &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	ci, err := st.store.getOrCreate(ctx, beanID, create)
	if err == errStoreClosed {
		return nil, &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	return ci, err
}

func (t *requestContext) Destroy(ctx context.Context, beanID string) error {
	st, ok := t.active(ctx)
	if !ok {
		return &ContextNotActiveError{Scope: t.scope, BeanID: beanID}
	}
	return st.store.destroy(beanID)
}

func (t *requestContext) Activate(ctx context.Context) (context.Context, *ContextState) {
	st := &ContextState{id: uuid.New().String()}
	st.active.Store(true)
	return context.WithValue(ctx, stateKey{t.scope}, st), st
}

func (t *requestContext) ActivateState(ctx context.Context, state *ContextState) (context.Context, error) {
	if state == nil {
		return ctx, errors.New("null context state is not allowed")
	}
	if state.terminated.Load() {
		return ctx, errors.Errorf("context state '%s' of scope '%s' is terminated", state.id, t.scope)
	}
	state.active.Store(true)
	return context.WithValue(ctx, stateKey{t.scope}, state), nil
}

func (t *requestContext) Deactivate(ctx context.Context) {
	if st, ok := t.State(ctx); ok {
		st.active.Store(false)
	}
}

func (t *requestContext) Terminate(ctx context.Context) error {
	st, ok := t.State(ctx)
	if !ok || st.terminated.Swap(true) {
		return nil
	}
	st.active.Store(false)
	return st.store.destroyAll()
}

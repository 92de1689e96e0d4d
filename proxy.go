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
	"fmt"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
ClientProxy stands for normal scoped bean. It is a comparable value: two proxies of the same bean
in the same container are equal and can be used as map keys.
Each call looks up the instance of the currently active context and never keeps it.
*/
type ClientProxy struct {
	bean      *Bean
	container *container
}

func (t ClientProxy) BeanID() string {
	if t.bean == nil {
		return ""
	}
	return t.bean.id
}

func (t ClientProxy) Bean() *Bean {
	return t.bean
}

func (t ClientProxy) Equal(other ClientProxy) bool {
	return t == other
}

func (t ClientProxy) String() string {
	return fmt.Sprintf("ClientProxy(%s)", t.BeanID())
}

func (t ClientProxy) contextualInstance(ctx context.Context) (*ContextualInstance, error) {
	if t.container == nil || t.bean == nil {
		return nil, errors.New("client proxy is not bound to a container")
	}
	return t.container.contextualInstance(ctx, t.bean, nil, nil)
}

/**
Invokes business method on the instance of the active context
*/
func (t ClientProxy) Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	ci, err := t.contextualInstance(ctx)
	if err != nil {
		return nil, err
	}
	t.container.metrics.proxyInvocations.WithLabelValues(t.bean.id).Inc()
	return ci.Invoke(ctx, method, args...)
}

/**
Outermost decorator or the instance of the active context, calls on it bypass interceptors
*/
func (t ClientProxy) Delegate(ctx context.Context) (interface{}, error) {
	ci, err := t.contextualInstance(ctx)
	if err != nil {
		return nil, err
	}
	return ci.decorated, nil
}

/**
Underlying instance of the active context, for diagnostics and tests
*/
func (t ClientProxy) Unwrap(ctx context.Context) (interface{}, error) {
	ci, err := t.contextualInstance(ctx)
	if err != nil {
		return nil, err
	}
	return ci.instance, nil
}

/**
Proxy of the reference if it is one, directly or through a typed wrapper exposing Proxy()
*/
func AsClientProxy(ref interface{}) (ClientProxy, bool) {
	switch p := ref.(type) {
	case ClientProxy:
		return p, true
	case interface{ Proxy() ClientProxy }:
		return p.Proxy(), true
	default:
		return ClientProxy{}, false
	}
}

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

package beans_test

import (
	"context"
	"testing"

	"github.com/consensusdb/beans"
	"github.com/stretchr/testify/require"
)

/**
@author Alex Shvid
*/

func TestClientProxyIdentity(t *testing.T) {

	ctx := context.Background()
	c, _ := create(t, storageDefinition(beans.Application, nil), cartDefinition(new(counters)))

	s1, err := beans.Get[Storage](ctx, c)
	require.NoError(t, err)
	s2, err := beans.Get[Storage](ctx, c)
	require.NoError(t, err)
	cart, err := beans.Get[Cart](ctx, c)
	require.NoError(t, err)

	p1, ok := beans.AsClientProxy(s1)
	require.True(t, ok)
	p2, ok := beans.AsClientProxy(s2)
	require.True(t, ok)
	p3, ok := beans.AsClientProxy(cart)
	require.True(t, ok)

	require.True(t, p1.Equal(p2))
	require.False(t, p1.Equal(p3))
	require.Equal(t, "storage", p1.BeanID())
	require.Equal(t, "ClientProxy(storage)", p1.String())

	seen := map[interface{}]int{}
	seen[s1]++
	seen[s2]++
	seen[cart]++
	require.Equal(t, 2, len(seen))
	require.Equal(t, 2, seen[s1])

	_, ok = beans.AsClientProxy(&storageImpl{})
	require.False(t, ok)
}

func TestClientProxyUnbound(t *testing.T) {

	var p beans.ClientProxy
	_, err := p.Invoke(context.Background(), "Load", "key")
	require.Error(t, err)
	require.Equal(t, "", p.BeanID())
}

func TestClientProxyDelegate(t *testing.T) {

	ctx := context.Background()
	c, metrics := create(t, storageDefinition(beans.Application, nil))

	ref, err := c.Instance(StorageClass).Get(ctx)
	require.NoError(t, err)
	proxy, ok := beans.AsClientProxy(ref)
	require.True(t, ok)

	delegate, err := proxy.Delegate(ctx)
	require.NoError(t, err)
	delegate.(Storage).Store("key", "value")

	res, err := proxy.Invoke(ctx, "Load", "key")
	require.NoError(t, err)
	require.Equal(t, "value", res)

	_, err = proxy.Invoke(ctx, "Missing")
	require.Error(t, err)
	_, err = proxy.Invoke(ctx, "Load")
	require.Error(t, err, "wrong number of arguments")

	require.Equal(t, float64(3), counterValue(t, metrics, "beans_proxy_invocations_total"))
}

func TestReference(t *testing.T) {

	ctx := context.Background()
	c, _ := create(t, storageDefinition(beans.Application, nil), configServiceDefinition())

	b, ok := c.Registry().Bean("configService")
	require.True(t, ok)
	ref, err := c.Reference(ctx, b)
	require.NoError(t, err)
	_, ok = ref.(*configServiceImpl)
	require.True(t, ok)

	b, _ = c.Registry().Bean("storage")
	ref, err = c.Reference(ctx, b)
	require.NoError(t, err)
	_, ok = ref.(storageProxy)
	require.True(t, ok)

	_, err = c.Reference(ctx, nil)
	require.Error(t, err)
}

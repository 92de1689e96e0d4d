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
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/consensusdb/beans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

/**
@author Alex Shvid
*/

var StorageClass = reflect.TypeOf((*Storage)(nil)).Elem()

type Storage interface {
	Load(key string) string
	Store(key, value string)
}

var ConfigServiceClass = reflect.TypeOf((*ConfigService)(nil)).Elem()

type ConfigService interface {
	GetConfig(key string) string
	SetConfig(key, value string)
}

var UserServiceClass = reflect.TypeOf((*UserService)(nil)).Elem()

type UserService interface {
	GetUser(user string) string
	SaveUser(user, details string)
}

type storageImpl struct {
	mu   sync.Mutex
	data map[string]string
}

func newStorage() *storageImpl {
	return &storageImpl{data: make(map[string]string)}
}

func (t *storageImpl) Load(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data[key]
}

func (t *storageImpl) Store(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[key] = value
}

/**
Typed client proxy as the build step generates it
*/
type storageProxy struct {
	beans.Invoker
}

func (t storageProxy) Load(key string) string {
	res, err := t.Invoke(context.Background(), "Load", key)
	if err != nil {
		panic(err)
	}
	return res.(string)
}

func (t storageProxy) Store(key, value string) {
	if _, err := t.Invoke(context.Background(), "Store", key, value); err != nil {
		panic(err)
	}
}

func (t storageProxy) Proxy() beans.ClientProxy {
	p, _ := t.Invoker.(beans.ClientProxy)
	return p
}

type configServiceImpl struct {
	Storage
}

func (t *configServiceImpl) GetConfig(key string) string {
	return t.Load("config:" + key)
}

func (t *configServiceImpl) SetConfig(key, value string) {
	t.Store("config:"+key, value)
}

type userServiceImpl struct {
	Storage
	ConfigService
}

func (t *userServiceImpl) GetUser(user string) string {
	return t.Load("user:" + user)
}

func (t *userServiceImpl) SaveUser(user, details string) {
	if t.allowWrites() {
		t.Store("user:"+user, details)
	}
}

func (t *userServiceImpl) allowWrites() bool {
	b, err := strconv.ParseBool(t.GetConfig("allowWrites"))
	if err != nil {
		return false
	}
	return b
}

func storageDefinition(scope beans.Scope, created *atomic.Int32) *beans.Definition {
	return &beans.Definition{
		ID:    "storage",
		Types: []reflect.Type{StorageClass},
		Scope: scope,
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			if created != nil {
				created.Add(1)
			}
			return newStorage(), nil
		}),
		Wrap: func(inv beans.Invoker) interface{} {
			return storageProxy{inv}
		},
	}
}

func configServiceDefinition() *beans.Definition {
	return &beans.Definition{
		ID:              "configService",
		Types:           []reflect.Type{ConfigServiceClass},
		Scope:           beans.Singleton,
		InjectionPoints: []beans.InjectionPoint{{Type: StorageClass, Name: "Storage"}},
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return &configServiceImpl{Storage: cc.Dependency(0).(Storage)}, nil
		}),
	}
}

func userServiceDefinition() *beans.Definition {
	return &beans.Definition{
		ID:    "userService",
		Types: []reflect.Type{UserServiceClass},
		Scope: beans.Dependent,
		InjectionPoints: []beans.InjectionPoint{
			{Type: StorageClass, Name: "Storage"},
			{Type: ConfigServiceClass, Name: "ConfigService"},
		},
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return &userServiceImpl{
				Storage:       cc.Dependency(0).(Storage),
				ConfigService: cc.Dependency(1).(ConfigService),
			}, nil
		}),
	}
}

var CartClass = reflect.TypeOf((*Cart)(nil)).Elem()

type Cart interface {
	Add(ctx context.Context, item string)
	Items(ctx context.Context) []string
}

type cartImpl struct {
	mu    sync.Mutex
	items []string
}

func (t *cartImpl) Add(_ context.Context, item string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, item)
}

func (t *cartImpl) Items(context.Context) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.items...)
}

type cartProxy struct {
	beans.Invoker
}

func (t cartProxy) Add(ctx context.Context, item string) {
	if _, err := t.Invoke(ctx, "Add", item); err != nil {
		panic(err)
	}
}

func (t cartProxy) Items(ctx context.Context) []string {
	res, err := t.Invoke(ctx, "Items")
	if err != nil {
		panic(err)
	}
	return res.([]string)
}

func (t cartProxy) Proxy() beans.ClientProxy {
	p, _ := t.Invoker.(beans.ClientProxy)
	return p
}

type counters struct {
	created   atomic.Int32
	destroyed atomic.Int32
}

func cartDefinition(c *counters) *beans.Definition {
	return &beans.Definition{
		ID:    "cart",
		Types: []reflect.Type{CartClass},
		Scope: beans.Request,
		Factory: beans.FactoryFuncs{
			CreateFunc: func(cc *beans.CreationalContext) (interface{}, error) {
				c.created.Add(1)
				return &cartImpl{}, nil
			},
			DestroyFunc: func(instance interface{}, cc *beans.CreationalContext) error {
				c.destroyed.Add(1)
				return nil
			},
		},
		Wrap: func(inv beans.Invoker) interface{} {
			return cartProxy{inv}
		},
	}
}

/**
Registers definitions and creates container with its own metrics registry
*/
func create(t *testing.T, defs ...*beans.Definition) (beans.Container, *prometheus.Registry) {
	reg := beans.NewRegistry()
	for _, def := range defs {
		require.NoError(t, reg.Register(def))
	}
	metrics := prometheus.NewRegistry()
	c, err := beans.Create(reg, beans.WithRegisterer(metrics))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})
	return c, metrics
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

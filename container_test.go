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
	"sync/atomic"
	"testing"

	"github.com/consensusdb/beans"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

/**
@author Alex Shvid
*/

func TestCreateNil(t *testing.T) {

	c, err := beans.Create(nil)
	require.NotNil(t, err)
	require.Nil(t, c)

}

func TestCreateEmpty(t *testing.T) {

	c, err := beans.Create(beans.NewRegistry())
	require.Nil(t, err)
	require.NotNil(t, c)
	require.Equal(t, 0, len(c.Registry().Beans()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

}

func TestCreate(t *testing.T) {

	ctx := context.Background()
	var created atomic.Int32
	c, metrics := create(t,
		storageDefinition(beans.Application, &created),
		configServiceDefinition(),
		userServiceDefinition(),
	)

	svc, err := beans.Get[UserService](ctx, c)
	require.NoError(t, err)
	userService, ok := svc.(*userServiceImpl)
	require.True(t, ok)

	_, ok = userService.Storage.(storageProxy)
	require.True(t, ok, "normal scoped bean must be injected through client proxy")

	configService, ok := userService.ConfigService.(*configServiceImpl)
	require.True(t, ok, "singleton is injected by direct reference")

	configService.SetConfig("allowWrites", "true")
	svc.SaveUser("alex", "username=Alex")
	require.Equal(t, "username=Alex", svc.GetUser("alex"))
	require.Equal(t, int32(1), created.Load())

	p1, ok := beans.AsClientProxy(userService.Storage)
	require.True(t, ok)
	p2, ok := beans.AsClientProxy(configService.Storage)
	require.True(t, ok)
	i1, err := p1.Unwrap(ctx)
	require.NoError(t, err)
	i2, err := p2.Unwrap(ctx)
	require.NoError(t, err)
	require.Same(t, i1, i2)

	// storage, configService and userService
	require.Equal(t, float64(3), counterValue(t, metrics, "beans_instances_created_total"))

	other, err := beans.Get[UserService](ctx, c)
	require.NoError(t, err)
	require.NotSame(t, svc, other, "dependent bean never reuses instances")
}

func TestMissingDependency(t *testing.T) {

	reg := beans.NewRegistry()
	require.NoError(t, reg.Register(storageDefinition(beans.Application, nil)))
	require.NoError(t, reg.Register(userServiceDefinition()))

	_, err := beans.Create(reg)
	require.Error(t, err)

	var definitionErr *beans.DefinitionError
	require.ErrorAs(t, err, &definitionErr)
	require.Len(t, definitionErr.Problems, 1)

	var unsatisfied *beans.UnsatisfiedResolutionError
	require.ErrorAs(t, err, &unsatisfied)
	require.Equal(t, ConfigServiceClass, unsatisfied.Type)
	require.Contains(t, err.Error(), "userService->ConfigService")
}

func TestAmbiguousDependency(t *testing.T) {

	second := storageDefinition(beans.Application, nil)
	second.ID = "otherStorage"
	second.Types = append(second.Types, reflect.TypeOf(&storageImpl{}))

	reg := beans.NewRegistry()
	require.NoError(t, reg.Register(storageDefinition(beans.Application, nil)))
	require.NoError(t, reg.Register(second))
	require.NoError(t, reg.Register(configServiceDefinition()))

	_, err := beans.Create(reg)
	var ambiguous *beans.AmbiguousResolutionError
	require.ErrorAs(t, err, &ambiguous)
	require.ElementsMatch(t, []string{"storage", "otherStorage"}, ambiguous.Candidates)
}

var NodeClass = reflect.TypeOf((*Node)(nil)).Elem()

type Node interface {
	Name() string
	Peer() Node
}

type nodeImpl struct {
	name string
	peer Node
}

func (t *nodeImpl) Name() string {
	return t.name
}

func (t *nodeImpl) Peer() Node {
	return t.peer
}

type nodeProxy struct {
	beans.Invoker
}

func (t nodeProxy) Name() string {
	res, err := t.Invoke(context.Background(), "Name")
	if err != nil {
		panic(err)
	}
	return res.(string)
}

func (t nodeProxy) Peer() Node {
	res, err := t.Invoke(context.Background(), "Peer")
	if err != nil {
		panic(err)
	}
	return res.(Node)
}

func nodeDefinition(name, peer string, scope beans.Scope) *beans.Definition {
	return &beans.Definition{
		ID:              name,
		Types:           []reflect.Type{NodeClass},
		Qualifiers:      []beans.Qualifier{beans.Named(name)},
		Scope:           scope,
		InjectionPoints: []beans.InjectionPoint{{Type: NodeClass, Qualifiers: []beans.Qualifier{beans.Named(peer)}}},
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return &nodeImpl{name: name, peer: cc.Dependency(0).(Node)}, nil
		}),
		Wrap: func(inv beans.Invoker) interface{} {
			return nodeProxy{inv}
		},
	}
}

func TestCircularDependency(t *testing.T) {

	reg := beans.NewRegistry()
	require.NoError(t, reg.Register(nodeDefinition("a", "b", beans.Singleton)))
	require.NoError(t, reg.Register(nodeDefinition("b", "a", beans.Dependent)))

	_, err := beans.Create(reg)
	var circular *beans.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	require.Equal(t, []string{"a", "b", "a"}, circular.Path)
}

func TestCircularDependencyThroughProxy(t *testing.T) {

	ctx := context.Background()
	c, _ := create(t,
		nodeDefinition("a", "b", beans.Application),
		nodeDefinition("b", "a", beans.Dependent),
	)

	a, err := beans.Get[Node](ctx, c, beans.Named("a"))
	require.NoError(t, err)
	require.Equal(t, "a", a.Name())
	require.Equal(t, "b", a.Peer().Name())
	require.Equal(t, "a", a.Peer().Peer().Name())
}

func TestCircularDependencyAtRuntime(t *testing.T) {

	ctx := context.Background()
	loop := &beans.Definition{
		ID:              "loop",
		Types:           []reflect.Type{NodeClass},
		InjectionPoints: []beans.InjectionPoint{{Type: NodeClass, Provider: true}},
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			self, err := cc.Dependency(0).(*beans.Handle).Get(cc.Context())
			if err != nil {
				return nil, err
			}
			return &nodeImpl{name: "loop", peer: self.(Node)}, nil
		}),
	}
	c, _ := create(t, loop)

	_, err := c.Instance(NodeClass).Get(ctx)
	var circular *beans.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	require.Equal(t, []string{"loop", "loop"}, circular.Path)
}

var LeafClass = reflect.TypeOf((*leaf)(nil))

type leaf struct {
	disposed atomic.Int32
}

func (t *leaf) Destroy() error {
	t.disposed.Add(1)
	return nil
}

type branch struct {
	left, right *leaf
}

func TestDependentDestruction(t *testing.T) {

	ctx := context.Background()
	var leafDestroyed, branchDestroyed atomic.Int32
	var leaves []*leaf

	c, metrics := create(t,
		&beans.Definition{
			ID:    "leaf",
			Types: []reflect.Type{LeafClass},
			Factory: beans.FactoryFuncs{
				CreateFunc: func(cc *beans.CreationalContext) (interface{}, error) {
					l := &leaf{}
					leaves = append(leaves, l)
					return l, nil
				},
				DestroyFunc: func(instance interface{}, cc *beans.CreationalContext) error {
					leafDestroyed.Add(1)
					return nil
				},
			},
		},
		&beans.Definition{
			ID:              "branch",
			Types:           []reflect.Type{reflect.TypeOf((*branch)(nil))},
			InjectionPoints: []beans.InjectionPoint{{Type: LeafClass}, {Type: LeafClass}},
			Factory: beans.FactoryFuncs{
				CreateFunc: func(cc *beans.CreationalContext) (interface{}, error) {
					return &branch{left: cc.Dependency(0).(*leaf), right: cc.Dependency(1).(*leaf)}, nil
				},
				DestroyFunc: func(instance interface{}, cc *beans.CreationalContext) error {
					branchDestroyed.Add(1)
					return nil
				},
			},
		},
	)

	h := c.Instance(reflect.TypeOf((*branch)(nil)))
	ref, err := h.Get(ctx)
	require.NoError(t, err)
	b := ref.(*branch)
	require.NotSame(t, b.left, b.right)
	require.Len(t, leaves, 2)

	require.NoError(t, h.Destroy(ctx, b))
	require.Equal(t, int32(1), branchDestroyed.Load())
	require.Equal(t, int32(2), leafDestroyed.Load())
	for _, l := range leaves {
		require.Equal(t, int32(1), l.disposed.Load())
	}

	require.Error(t, h.Destroy(ctx, b), "instance is already released by the handle")
	require.NoError(t, h.Close())
	require.Equal(t, int32(2), leafDestroyed.Load())
	require.Equal(t, float64(3), counterValue(t, metrics, "beans_instances_destroyed_total"))
}

type part struct{}

type whole struct {
	part *part
}

func wholeDefinitions(partDestroyed, wholeDestroyed *atomic.Int32) []*beans.Definition {
	partClass := reflect.TypeOf((*part)(nil))
	return []*beans.Definition{
		{
			ID:    "part",
			Types: []reflect.Type{partClass},
			Factory: beans.FactoryFuncs{
				CreateFunc: func(cc *beans.CreationalContext) (interface{}, error) {
					return &part{}, nil
				},
				DestroyFunc: func(instance interface{}, cc *beans.CreationalContext) error {
					partDestroyed.Add(1)
					return nil
				},
			},
		},
		{
			ID:              "whole",
			Types:           []reflect.Type{reflect.TypeOf((*whole)(nil))},
			InjectionPoints: []beans.InjectionPoint{{Type: partClass}},
			Factory: beans.FactoryFuncs{
				CreateFunc: func(cc *beans.CreationalContext) (interface{}, error) {
					return &whole{part: cc.Dependency(0).(*part)}, nil
				},
				DestroyFunc: func(instance interface{}, cc *beans.CreationalContext) error {
					wholeDestroyed.Add(1)
					return nil
				},
			},
		},
	}
}

func TestDependentReleasedOnClose(t *testing.T) {

	var partDestroyed, wholeDestroyed atomic.Int32
	reg := beans.NewRegistry()
	for _, def := range wholeDefinitions(&partDestroyed, &wholeDestroyed) {
		require.NoError(t, reg.Register(def))
	}
	c, err := beans.Create(reg)
	require.NoError(t, err)

	w, err := beans.Get[*whole](context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, w.part)

	b, ok := c.Registry().Bean("part")
	require.True(t, ok)
	_, err = c.Reference(context.Background(), b)
	require.NoError(t, err)

	require.Zero(t, partDestroyed.Load())
	require.NoError(t, c.Close())
	require.Equal(t, int32(1), wholeDestroyed.Load())
	require.Equal(t, int32(2), partDestroyed.Load())

	require.NoError(t, c.Close())
	require.Equal(t, int32(2), partDestroyed.Load())
}

func TestRelease(t *testing.T) {

	ctx := context.Background()
	var partDestroyed, wholeDestroyed atomic.Int32
	var created atomic.Int32
	defs := append(wholeDefinitions(&partDestroyed, &wholeDestroyed), storageDefinition(beans.Application, &created))
	c, metrics := create(t, defs...)

	w, err := beans.Get[*whole](ctx, c)
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, w))
	require.Equal(t, int32(1), wholeDestroyed.Load())
	require.Equal(t, int32(1), partDestroyed.Load())
	require.Error(t, c.Release(ctx, w), "instance is already released")
	require.Error(t, c.Release(ctx, &whole{}), "instance is not owned by the container")

	s, err := beans.Get[Storage](ctx, c)
	require.NoError(t, err)
	s.Store("key", "value")
	require.NoError(t, c.Release(ctx, s))
	require.Equal(t, "", s.Load("key"), "released contextual instance is created again")
	require.Equal(t, int32(2), created.Load())

	require.Equal(t, float64(3), counterValue(t, metrics, "beans_instances_destroyed_total"))
}

type auditLogger struct {
	owner string
}

type auditedService struct {
	logger *auditLogger
}

func TestInjectionPointMetadata(t *testing.T) {

	ctx := context.Background()
	c, _ := create(t,
		&beans.Definition{
			ID:              "auditLogger",
			Types:           []reflect.Type{reflect.TypeOf((*auditLogger)(nil))},
			InjectionPoints: []beans.InjectionPoint{{Type: beans.InjectionPointType}},
			Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
				ip := cc.Dependency(0).(*beans.InjectionPoint)
				return &auditLogger{owner: ip.Bean.ID() + "." + ip.Name}, nil
			}),
		},
		&beans.Definition{
			ID:              "auditedService",
			Types:           []reflect.Type{reflect.TypeOf((*auditedService)(nil))},
			Scope:           beans.Singleton,
			InjectionPoints: []beans.InjectionPoint{{Type: reflect.TypeOf((*auditLogger)(nil)), Name: "logger"}},
			Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
				return &auditedService{logger: cc.Dependency(0).(*auditLogger)}, nil
			}),
		},
	)

	svc, err := beans.Get[*auditedService](ctx, c)
	require.NoError(t, err)
	require.Equal(t, "auditedService.logger", svc.logger.owner)
}

func TestInjectionPointMetadataRequiresDependent(t *testing.T) {

	reg := beans.NewRegistry()
	require.NoError(t, reg.Register(&beans.Definition{
		ID:              "auditLogger",
		Types:           []reflect.Type{reflect.TypeOf((*auditLogger)(nil))},
		Scope:           beans.Singleton,
		InjectionPoints: []beans.InjectionPoint{{Type: beans.InjectionPointType}},
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return &auditLogger{}, nil
		}),
	}))
	_, err := beans.Create(reg)
	require.Error(t, err)
}

type initializing struct {
	fail      bool
	destroyed bool
}

func (t *initializing) PostConstruct() error {
	if t.fail {
		return errors.New("not ready")
	}
	return nil
}

func (t *initializing) Destroy() error {
	t.destroyed = true
	return nil
}

func TestPostConstructFailure(t *testing.T) {

	ctx := context.Background()
	instance := &initializing{fail: true}
	c, _ := create(t, &beans.Definition{
		ID:    "initializing",
		Types: []reflect.Type{reflect.TypeOf(instance)},
		Scope: beans.Singleton,
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return instance, nil
		}),
	})

	_, err := beans.Get[*initializing](ctx, c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not ready")
	require.True(t, instance.destroyed)

	instance.fail = false
	instance.destroyed = false
	got, err := beans.Get[*initializing](ctx, c)
	require.NoError(t, err, "failed creation is not cached")
	require.Same(t, instance, got)
}

func TestSingletonDestroyedOnClose(t *testing.T) {

	ctx := context.Background()
	instance := &initializing{}
	reg := beans.NewRegistry()
	require.NoError(t, reg.Register(&beans.Definition{
		ID:    "initializing",
		Types: []reflect.Type{reflect.TypeOf(instance)},
		Scope: beans.Singleton,
		Factory: beans.Constructor(func(cc *beans.CreationalContext) (interface{}, error) {
			return instance, nil
		}),
	}))
	c, err := beans.Create(reg)
	require.NoError(t, err)

	_, err = beans.Get[*initializing](ctx, c)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.True(t, instance.destroyed)

	_, err = beans.Get[*initializing](ctx, c)
	require.ErrorIs(t, err, beans.ErrClosed)
}

func TestCurrentContainer(t *testing.T) {

	require.Nil(t, beans.Current())

	c, err := beans.Initialize(beans.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, c, beans.Current())

	_, err = beans.Initialize(beans.NewRegistry())
	require.ErrorIs(t, err, beans.ErrAlreadyInitialized)

	require.NoError(t, beans.Shutdown())
	require.Nil(t, beans.Current())
	require.NoError(t, beans.Shutdown())

	c, err = beans.Initialize(beans.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, c, beans.Current())
	require.NoError(t, beans.Shutdown())
}

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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

/**
@author Alex Shvid
*/

const tracerName = "github.com/consensusdb/beans"

type container struct {
	id       string
	registry *Registry
	resolver *Resolver

	contexts    map[Scope]Context
	application *sharedContext
	singleton   *sharedContext
	request     ManagedContext

	/**
	Owner of dependent instances handed out by Reference and Get, released on Close
	*/
	owned *CreationalContext

	/**
	Built on creation, no modifications on runtime
	*/
	chains map[string]*InterceptorChain

	executor Executor
	config   *Config
	logger   zerolog.Logger
	metrics  *metrics
	tracer   trace.Tracer
	verbose  bool

	closed atomic.Bool
}

/**
Seals the registry, validates all definitions and creates container.
All definition errors are reported together in *DefinitionError.
*/
func Create(registry *Registry, opts ...Option) (Container, error) {
	if registry == nil {
		return nil, errors.New("null registry is not allowed")
	}
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.config == nil {
		o.config = DefaultConfig()
	}
	if level, err := o.config.Level(); err == nil && o.config.LogLevel != "" {
		o.logger = o.logger.Level(level)
	}
	if len(o.config.EnabledAlternatives) > 0 {
		if err := registry.SelectAlternatives(o.config.EnabledAlternatives...); err != nil {
			return nil, err
		}
	}
	if err := registry.Seal(); err != nil {
		return nil, err
	}
	resolver, err := NewResolver(registry)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	t := &container{
		id:          uuid.New().String(),
		registry:    registry,
		resolver:    resolver,
		contexts:    make(map[Scope]Context),
		application: newSharedContext(Application, true),
		singleton:   newSharedContext(Singleton, false),
		request:     NewRequestContext(Request),
		owned:       newCreationalContext(nil, nil),
		chains:      make(map[string]*InterceptorChain),
		executor:    o.executor,
		config:      o.config,
		metrics:     m,
		verbose:     o.config.Verbose || Verbose,
	}
	t.logger = o.logger.With().Str("component", "beans").Str("container", t.id).Logger()
	if o.config.Verbose {
		resolver.trace(t.logger)
	}
	if t.executor == nil {
		if o.config.AsyncWorkers > 0 {
			t.executor = NewPoolExecutor(o.config.AsyncWorkers)
		} else {
			t.executor = GoExecutor{}
		}
	}
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	t.tracer = tp.Tracer(tracerName)

	t.contexts[Dependent] = dependentContext{}
	t.contexts[Singleton] = t.singleton
	t.contexts[Application] = t.application
	t.contexts[Request] = t.request
	for _, c := range o.contexts {
		if _, ok := t.contexts[c.Scope()]; ok {
			return nil, errors.Errorf("context for scope '%s' is already registered", c.Scope())
		}
		t.contexts[c.Scope()] = c
	}

	if err := t.validate(); err != nil {
		t.logger.Error().Err(err).Msg("container validation failed")
		return nil, err
	}
	t.logger.Info().Int("beans", len(registry.Beans())).Int("observers", len(registry.Observers())).Msg("container created")
	return t, nil
}

func (t *container) ID() string {
	return t.id
}

func (t *container) Registry() *Registry {
	return t.registry
}

func (t *container) Resolver() *Resolver {
	return t.resolver
}

func (t *container) RequestContext() ManagedContext {
	return t.request
}

func (t *container) Context(scope Scope) (Context, bool) {
	c, ok := t.contexts[scope]
	return c, ok
}

func (t *container) Chain(beanID string) (*InterceptorChain, bool) {
	c, ok := t.chains[beanID]
	return c, ok
}

func (t *container) Instance(typ reflect.Type, qualifiers ...Qualifier) *Handle {
	return newHandle(t, typ, qualifiers, newCreationalContext(nil, nil))
}

func (t *container) Reference(ctx context.Context, b *Bean) (interface{}, error) {
	if b == nil {
		return nil, errors.New("null bean is not allowed")
	}
	if b.kind != KindBean {
		return nil, errors.Errorf("%v '%s' has no contextual reference", b.kind, b.id)
	}
	return t.reference(ctx, b, t.owned, nil)
}

func (t *container) Release(ctx context.Context, ref interface{}) error {
	return t.destroy(ctx, t.owned, ref)
}

/**
Destroys dependent instance registered in the owner, or the contextual instance behind the client proxy
*/
func (t *container) destroy(ctx context.Context, owner *CreationalContext, ref interface{}) error {
	if proxy, ok := AsClientProxy(ref); ok {
		c, ok := t.contexts[proxy.bean.scope]
		if !ok {
			return errors.Errorf("no context for scope '%s'", proxy.bean.scope)
		}
		return c.Destroy(ctx, proxy.bean.id)
	}
	ci := owner.findDependent(ref)
	if ci == nil {
		return errors.Errorf("instance of type '%T' is not owned by the caller", ref)
	}
	owner.removeDependent(ci)
	return ci.Destroy()
}

func (t *container) isNormal(b *Bean) bool {
	c, ok := t.contexts[b.scope]
	return ok && c.Normal()
}

/**
Client proxy for normal scoped beans, instance or intercepted reference otherwise.
Dependent instances are registered in the owner.
*/
func (t *container) reference(ctx context.Context, b *Bean, owner *CreationalContext, ip *InjectionPoint) (interface{}, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if t.isNormal(b) {
		proxy := ClientProxy{bean: b, container: t}
		if b.wrap != nil {
			return b.wrap(proxy), nil
		}
		return proxy, nil
	}
	ci, err := t.contextualInstance(ctx, b, owner, ip)
	if err != nil {
		return nil, err
	}
	return ci.ref, nil
}

func (t *container) contextualInstance(ctx context.Context, b *Bean, owner *CreationalContext, ip *InjectionPoint) (*ContextualInstance, error) {
	c, ok := t.contexts[b.scope]
	if !ok {
		return nil, errors.Errorf("no context for scope '%s' of bean '%s'", b.scope, b.id)
	}
	if !c.IsActive(ctx) {
		return nil, &ContextNotActiveError{Scope: b.scope, BeanID: b.id}
	}
	if path := cycleOf(ctx, b); path != nil {
		return nil, &CircularDependencyError{Path: path}
	}
	if owner != nil {
		ctx = withCreational(ctx, owner)
	}
	return c.GetOrCreate(ctx, b.id, func(ctx context.Context) (*ContextualInstance, error) {
		return t.create(ctx, b, ip)
	})
}

/**
Creates instance with decorators, interceptors and post-construct callback
*/
func (t *container) create(ctx context.Context, b *Bean, ip *InjectionPoint) (*ContextualInstance, error) {
	ctx, span := t.tracer.Start(withChain(ctx, b), "beans.create", trace.WithAttributes(
		attribute.String("bean.id", b.id),
		attribute.String("bean.scope", string(b.scope)),
	))
	defer span.End()

	ci, err := t.produce(ctx, b, ip, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if chain, ok := t.chains[b.id]; ok {
		if err := t.decorate(ctx, ci, chain.Decorators); err != nil {
			_ = ci.Destroy()
			span.RecordError(err)
			return nil, err
		}
		if err := t.intercept(ctx, ci, chain.Interceptors); err != nil {
			_ = ci.Destroy()
			span.RecordError(err)
			return nil, err
		}
	}

	if len(ci.interceptors) > 0 && !t.isNormal(b) {
		if b.wrap != nil {
			ci.ref = b.wrap(ci)
		} else {
			ci.ref = ci
		}
	}

	if ib, ok := ci.instance.(InitializingBean); ok {
		if err := ib.PostConstruct(); err != nil {
			_ = ci.Destroy()
			err = errors.Wrapf(err, "post construct of bean '%s'", b.id)
			span.RecordError(err)
			return nil, err
		}
	}

	t.metrics.instancesCreated.WithLabelValues(string(b.scope)).Inc()
	if t.verbose {
		t.logger.Debug().Str("bean", b.id).Str("scope", string(b.scope)).Msg("created")
	}
	return ci, nil
}

/**
Resolves injection points and calls the factory
*/
func (t *container) produce(ctx context.Context, b *Bean, ip *InjectionPoint, delegate interface{}) (*ContextualInstance, error) {
	cc := newCreationalContext(b, ip)
	cc.ctx = ctx
	cc.delegate = delegate
	cc.dependencies = make([]interface{}, len(b.injectionPoints))
	for i := range b.injectionPoints {
		dep, err := t.inject(ctx, cc, &b.injectionPoints[i])
		if err != nil {
			_ = cc.release()
			return nil, errors.Wrapf(err, "create bean '%s'", b.id)
		}
		cc.dependencies[i] = dep
	}
	instance, err := b.factory.Create(cc)
	if err != nil {
		_ = cc.release()
		return nil, errors.Wrapf(err, "factory of bean '%s'", b.id)
	}
	if instance == nil {
		_ = cc.release()
		return nil, errors.Errorf("factory of bean '%s' returned null", b.id)
	}
	return &ContextualInstance{
		bean:      b,
		instance:  instance,
		decorated: instance,
		ref:       instance,
		cc:        cc,
		container: t,
	}, nil
}

func (t *container) inject(ctx context.Context, cc *CreationalContext, ip *InjectionPoint) (interface{}, error) {
	if ip.Type == InjectionPointType {
		if cc.injectionPoint == nil {
			return nil, errors.Errorf("no injection point metadata for %v", ip)
		}
		meta := *cc.injectionPoint
		return &meta, nil
	}
	if ip.Provider {
		return newHandle(t, ip.Type, ip.Qualifiers, cc), nil
	}
	b, err := t.resolver.Resolve(*ip)
	if err != nil {
		return nil, err
	}
	return t.reference(ctx, b, cc, ip)
}

/**
Builds decorators from the innermost, each one receives the next link as delegate
*/
func (t *container) decorate(ctx context.Context, ci *ContextualInstance, decorators []*Bean) error {
	delegate := ci.instance
	for i := len(decorators) - 1; i >= 0; i-- {
		d, err := t.produce(ctx, decorators[i], nil, delegate)
		if err != nil {
			return err
		}
		ci.cc.addDependent(d)
		delegate = d.instance
	}
	ci.decorated = delegate
	ci.ref = delegate
	return nil
}

/**
Interceptor instances are dependent objects of the intercepted instance
*/
func (t *container) intercept(ctx context.Context, ci *ContextualInstance, interceptors []*Bean) error {
	for _, b := range interceptors {
		ii, err := t.produce(ctx, b, nil, nil)
		if err != nil {
			return err
		}
		ci.cc.addDependent(ii)
		i, ok := ii.instance.(Interceptor)
		if !ok {
			return errors.Errorf("interceptor '%s' of type '%T' does not implement Interceptor", b.id, ii.instance)
		}
		ci.interceptors = append(ci.interceptors, i)
	}
	return nil
}

func (t *container) instanceDestroyed(ci *ContextualInstance) {
	t.metrics.instancesDestroyed.WithLabelValues(string(ci.bean.scope)).Inc()
	if t.verbose {
		t.logger.Debug().Str("bean", ci.bean.id).Str("scope", string(ci.bean.scope)).Msg("destroyed")
	}
}

func (t *container) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	var err []error
	if e := t.owned.release(); e != nil {
		err = append(err, e)
	}
	if e := t.application.close(); e != nil {
		err = append(err, e)
	}
	if e := t.singleton.close(); e != nil {
		err = append(err, e)
	}
	for _, c := range t.contexts {
		if closer, ok := c.(interface{ Close() error }); ok {
			if e := closer.Close(); e != nil {
				err = append(err, e)
			}
		}
	}
	t.logger.Info().Msg("container closed")
	return combine(err)
}

var (
	currentMu sync.Mutex
	current   Container
)

/**
Creates process-wide container returned by Current
*/
func Initialize(registry *Registry, opts ...Option) (Container, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return nil, ErrAlreadyInitialized
	}
	c, err := Create(registry, opts...)
	if err != nil {
		return nil, err
	}
	current = c
	return c, nil
}

/**
Process-wide container, nil before Initialize and after Shutdown
*/
func Current() Container {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

/**
Closes process-wide container, allows Initialize again
*/
func Shutdown() error {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current == nil {
		return nil
	}
	err := current.Close()
	current = nil
	return err
}

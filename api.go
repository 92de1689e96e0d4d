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
)

/**
@author Alex Shvid
*/

var ContainerClass = reflect.TypeOf((*Container)(nil)).Elem()

type Container interface {

	/**
	Unique id of the container instance, used in logs
	*/
	ID() string

	/**
	Sealed registry the container was created from
	*/
	Registry() *Registry

	Resolver() *Resolver

	/**
	Gets lazy handle for the type and qualifiers, resolution runs on each Get call.

	Example:
		var UserServiceClass = reflect.TypeOf((*app.UserService)(nil)).Elem()

		h := container.Instance(UserServiceClass)
		defer h.Close()
		svc, err := h.Get(ctx)
	*/
	Instance(typ reflect.Type, qualifiers ...Qualifier) *Handle

	/**
	Contextual reference of the bean: client proxy for normal scopes, instance otherwise.
	Dependent instances created by this call are owned by the container until Release.
	*/
	Reference(ctx context.Context, bean *Bean) (interface{}, error)

	/**
	Destroys dependent instance obtained from Reference or Get, or the contextual instance behind the client proxy.
	Instances not released are destroyed on Close.
	*/
	Release(ctx context.Context, ref interface{}) error

	/**
	Notifies observers of the payload type in priority order.
	Synchronous failure is returned immediately, asynchronous failures are collected by Completion.
	*/
	Fire(ctx context.Context, payload interface{}, qualifiers ...Qualifier) (*Completion, error)

	/**
	Interceptors and decorators of the bean, false if the bean is not intercepted nor decorated
	*/
	Chain(beanID string) (*InterceptorChain, bool)

	/**
	Context of the built-in Request scope
	*/
	RequestContext() ManagedContext

	Context(scope Scope) (Context, bool)

	/**
	Destroys application and singleton instances. Request states are terminated by the host.
	*/
	Close() error
}

/**
Initializing bean context is using to run required method on post-construct injection stage
*/
var InitializingBeanClass = reflect.TypeOf((*InitializingBean)(nil)).Elem()

type InitializingBean interface {

	/**
	Runs this method automatically after creating instance and applying decorators
	*/
	PostConstruct() error
}

/**
This interface uses to select objects that could free resources on destruction of contextual instance
*/
var DisposableBeanClass = reflect.TypeOf((*DisposableBean)(nil)).Elem()

type DisposableBean interface {

	/**
	Called once before factory destroy callback
	*/
	Destroy() error
}

/**
Invoker calls business methods through the interceptor chain.
Both ClientProxy and ContextualInstance are invokers.
*/
type Invoker interface {
	Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error)
}

/**
Generated dispatch of business methods, reflection is used for instances without it
*/
type MethodDispatcher interface {
	Dispatch(ctx context.Context, method string, args []interface{}) (interface{}, error)
}

var InterceptorClass = reflect.TypeOf((*Interceptor)(nil)).Elem()

/**
Instances of interceptor beans must implement this interface
*/
type Interceptor interface {
	AroundInvoke(ic *InvocationContext) (interface{}, error)
}

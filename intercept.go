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

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
Ordered interceptors and decorators of one bean, built once on container creation
*/
type InterceptorChain struct {
	BeanID string

	/**
	Ascending priority, ties by registration order
	*/
	Interceptors []*Bean

	/**
	The first one is the outermost
	*/
	Decorators []*Bean
}

func (t *InterceptorChain) InterceptorIDs() []string {
	return beanIDs(t.Interceptors)
}

func (t *InterceptorChain) DecoratorIDs() []string {
	return beanIDs(t.Decorators)
}

/**
InvocationContext is passed along the interceptor chain.
Args may be replaced before Proceed, Data is shared by all interceptors of the invocation.
*/
type InvocationContext struct {
	ctx    context.Context
	Target interface{}
	Method string
	Args   []interface{}
	Data   map[string]interface{}

	chain    []Interceptor
	pos      int
	terminal func(ic *InvocationContext) (interface{}, error)
}

func (t *InvocationContext) Context() context.Context {
	return t.ctx
}

/**
Invokes the next interceptor, the last one invokes the target method
*/
func (t *InvocationContext) Proceed() (interface{}, error) {
	pos := t.pos
	if pos >= len(t.chain) {
		return t.terminal(t)
	}
	t.pos = pos + 1
	defer func() { t.pos = pos }()
	return t.chain[pos].AroundInvoke(t)
}

/**
Invokes the business method through interceptors and decorators
*/
func (t *ContextualInstance) Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	if t.destroyed.Load() {
		return nil, errors.Errorf("instance of bean '%s' is destroyed", t.bean.id)
	}
	if len(t.interceptors) == 0 {
		return dispatch(ctx, t.decorated, method, args)
	}
	ic := &InvocationContext{
		ctx:    ctx,
		Target: t.instance,
		Method: method,
		Args:   args,
		Data:   make(map[string]interface{}),
		chain:  t.interceptors,
		terminal: func(ic *InvocationContext) (interface{}, error) {
			return dispatch(ic.ctx, t.decorated, ic.Method, ic.Args)
		},
	}
	return ic.Proceed()
}

var (
	contextClass = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorClass   = reflect.TypeOf((*error)(nil)).Elem()
)

/**
Calls the method by name. Context is passed as the first argument if the method declares it.
Trailing error result is returned as error, single other result as value, several as []interface{}.
*/
func dispatch(ctx context.Context, target interface{}, method string, args []interface{}) (interface{}, error) {
	if d, ok := target.(MethodDispatcher); ok {
		return d.Dispatch(ctx, method, args)
	}
	m := reflect.ValueOf(target).MethodByName(method)
	if !m.IsValid() {
		return nil, errors.Errorf("method '%s' not found in '%T'", method, target)
	}
	mt := m.Type()
	if mt.NumIn() > 0 && mt.In(0) == contextClass && len(args) < mt.NumIn() {
		args = append([]interface{}{ctx}, args...)
	}
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, errors.Errorf("method '%s' of '%T' expects at least %d arguments, got %d", method, target, mt.NumIn()-1, len(args))
		}
	} else if len(args) != mt.NumIn() {
		return nil, errors.Errorf("method '%s' of '%T' expects %d arguments, got %d", method, target, mt.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(pt) {
			return nil, errors.Errorf("argument %d of method '%s' in '%T' has type '%v', expected '%v'", i, method, target, v.Type(), pt)
		}
		in[i] = v
	}
	out := m.Call(in)
	var err error
	if n := len(out); n > 0 && mt.Out(n-1) == errorClass {
		if e := out[n-1].Interface(); e != nil {
			err = e.(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		res := make([]interface{}, len(out))
		for i, v := range out {
			res[i] = v.Interface()
		}
		return res, err
	}
}

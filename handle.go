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
Handle is a lazy lookup of beans by type and qualifiers.
Resolution runs on each call, dependent instances obtained from the handle are owned by it.
*/
type Handle struct {
	container  *container
	typ        reflect.Type
	qualifiers []Qualifier
	owner      *CreationalContext
}

func newHandle(c *container, typ reflect.Type, qualifiers []Qualifier, owner *CreationalContext) *Handle {
	return &Handle{
		container:  c,
		typ:        typ,
		qualifiers: append([]Qualifier(nil), qualifiers...),
		owner:      owner,
	}
}

func (t *Handle) Type() reflect.Type {
	return t.typ
}

func (t *Handle) Qualifiers() []Qualifier {
	return append([]Qualifier(nil), t.qualifiers...)
}

/**
Child handle with additional qualifiers, sharing ownership of dependent instances
*/
func (t *Handle) Select(qualifiers ...Qualifier) *Handle {
	return newHandle(t.container, t.typ, append(t.Qualifiers(), qualifiers...), t.owner)
}

func (t *Handle) resolve() (*Bean, error) {
	b, err := t.container.resolver.resolve(t.typ, requiredQualifiers(t.qualifiers))
	if err != nil {
		t.container.metrics.resolutionFailed(err)
	}
	return b, err
}

/**
Contextual reference of the single matching bean
*/
func (t *Handle) Get(ctx context.Context) (interface{}, error) {
	b, err := t.resolve()
	if err != nil {
		return nil, err
	}
	return t.container.reference(ctx, b, t.owner, nil)
}

/**
The single matching bean after tie-break
*/
func (t *Handle) Bean() (*Bean, error) {
	return t.resolve()
}

/**
Exactly one bean matches after tie-break
*/
func (t *Handle) IsAvailable() bool {
	_, err := t.resolve()
	return err == nil
}

func (t *Handle) IsUnsatisfied() bool {
	return len(t.Beans()) == 0
}

func (t *Handle) IsAmbiguous() bool {
	_, err := t.resolve()
	_, ok := err.(*AmbiguousResolutionError)
	return ok
}

/**
All matching beans without tie-break in registration order
*/
func (t *Handle) Beans() []*Bean {
	return t.container.resolver.ResolveAll(t.typ, t.qualifiers...)
}

/**
References of all matching beans, stops on the first failure
*/
func (t *Handle) All(ctx context.Context) ([]interface{}, error) {
	list := t.Beans()
	res := make([]interface{}, 0, len(list))
	for _, b := range list {
		ref, err := t.container.reference(ctx, b, t.owner, nil)
		if err != nil {
			return res, err
		}
		res = append(res, ref)
	}
	return res, nil
}

/**
Destroys dependent instance obtained from this handle, or the contextual instance behind the client proxy
*/
func (t *Handle) Destroy(ctx context.Context, ref interface{}) error {
	return t.container.destroy(ctx, t.owner, ref)
}

/**
Destroys all dependent instances obtained from this handle
*/
func (t *Handle) Close() error {
	return t.owner.release()
}

/**
Gets reference by the Go type parameter.
Dependent instances are owned by the container until Release or Close.

Example:
	svc, err := beans.Get[app.UserService](ctx, container)
	defer container.Release(ctx, svc)
*/
func Get[T any](ctx context.Context, c Container, qualifiers ...Qualifier) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	b, err := c.Instance(typ, qualifiers...).Bean()
	if err != nil {
		return zero, err
	}
	ref, err := c.Reference(ctx, b)
	if err != nil {
		return zero, err
	}
	res, ok := ref.(T)
	if !ok {
		return zero, errors.Errorf("reference of type '%T' is not '%v'", ref, typ)
	}
	return res, nil
}

/**
Gets reference of the bean qualified by @Named, the successor of lookup by name
*/
func GetNamed[T any](ctx context.Context, c Container, name string) (T, error) {
	return Get[T](ctx, c, Named(name))
}

/**
Panics if the reference can not be obtained
*/
func MustGet[T any](ctx context.Context, c Container, qualifiers ...Qualifier) T {
	res, err := Get[T](ctx, c, qualifiers...)
	if err != nil {
		panic(err)
	}
	return res
}

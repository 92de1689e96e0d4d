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
	"fmt"
	"reflect"
	"sort"
	"strings"
)

/**
@author Alex Shvid
*/

/**
Scope of the bean, defines how long contextual instance lives and who shares it
*/
type Scope string

const (
	/**
	New instance for each injection, owned by the bean that injected it
	*/
	Dependent Scope = "dependent"

	/**
	Single instance injected by direct reference, without client proxy
	*/
	Singleton Scope = "singleton"

	/**
	Single instance for the whole application, injected through client proxy
	*/
	Application Scope = "application"

	/**
	Instance per request context, injected through client proxy
	*/
	Request Scope = "request"
)

type Kind int

const (
	KindBean Kind = iota
	KindInterceptor
	KindDecorator
)

func (k Kind) String() string {
	switch k {
	case KindBean:
		return "bean"
	case KindInterceptor:
		return "interceptor"
	case KindDecorator:
		return "decorator"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

/**
Factory produces and destroys instances of the bean.
Implementations are supplied by the build step together with the bean metadata.
*/
type Factory interface {

	/**
	Create actual object, dependencies are available through creational context
	*/
	Create(cc *CreationalContext) (interface{}, error)

	/**
	Release resources of the object created by this factory
	*/
	Destroy(instance interface{}, cc *CreationalContext) error
}

/**
Adapter to use plain functions as Factory. DestroyFunc is optional.
*/
type FactoryFuncs struct {
	CreateFunc  func(cc *CreationalContext) (interface{}, error)
	DestroyFunc func(instance interface{}, cc *CreationalContext) error
}

func (t FactoryFuncs) Create(cc *CreationalContext) (interface{}, error) {
	return t.CreateFunc(cc)
}

func (t FactoryFuncs) Destroy(instance interface{}, cc *CreationalContext) error {
	if t.DestroyFunc == nil {
		return nil
	}
	return t.DestroyFunc(instance, cc)
}

/**
Factory without destroy callback
*/
func Constructor(fn func(cc *CreationalContext) (interface{}, error)) Factory {
	return FactoryFuncs{CreateFunc: fn}
}

/**
Priority helper for bean definitions
*/
func Priority(value int) *int {
	return &value
}

/**
Type of injection point that receives metadata of the injection point it is injected to
*/
var InjectionPointType = reflect.TypeOf((*InjectionPoint)(nil))

type InjectionPoint struct {
	/**
	Required type, usually interface
	*/
	Type reflect.Type

	/**
	Required qualifiers, @Default if empty
	*/
	Qualifiers []Qualifier

	/**
	Injection point receives lazy *Handle instead of the reference
	*/
	Provider bool

	/**
	Field or parameter name, used only in error messages
	*/
	Name string

	/**
	Owning bean, nil for the raw lookup
	*/
	Bean *Bean
}

func (t InjectionPoint) String() string {
	var out strings.Builder
	if t.Bean != nil {
		out.WriteString(t.Bean.id)
		if t.Name != "" {
			out.WriteString("->")
			out.WriteString(t.Name)
		}
		out.WriteRune(' ')
	}
	out.WriteString(fmt.Sprintf("%v%v", t.Type, requiredQualifiers(t.Qualifiers)))
	if t.Provider {
		out.WriteString(" (provider)")
	}
	return out.String()
}

/**
Externally supplied bean metadata. Copied into immutable Bean on registration.
*/
type Definition struct {
	ID          string
	Kind        Kind
	Types       []reflect.Type
	Qualifiers  []Qualifier
	Scope       Scope
	Alternative bool
	Priority    *int
	Factory     Factory

	/**
	Resolved in order and exposed to the factory by CreationalContext.Dependency(i)
	*/
	InjectionPoints []InjectionPoint

	/**
	For beans the bindings that select interceptors, for interceptors the bindings they serve
	*/
	InterceptorBindings []Qualifier

	/**
	Optional typed wrapper around Invoker, used for client proxies and intercepted dependent instances
	*/
	Wrap func(Invoker) interface{}
}

/**
Sealed bean definition
*/
type Bean struct {
	id              string
	kind            Kind
	types           []reflect.Type
	qualifiers      qualifiers
	scope           Scope
	alternative     bool
	priority        *int
	factory         Factory
	injectionPoints []InjectionPoint
	bindings        qualifiers
	wrap            func(Invoker) interface{}

	/**
	Registration order, secondary key in all priority sorts
	*/
	order int

	/**
	False for alternatives that are not selected
	*/
	enabled bool
}

func newBean(def *Definition, order int) *Bean {
	b := &Bean{
		id:          def.ID,
		kind:        def.Kind,
		types:       append([]reflect.Type(nil), def.Types...),
		qualifiers:  normalizeQualifiers(def.Qualifiers),
		scope:       def.Scope,
		alternative: def.Alternative,
		factory:     def.Factory,
		bindings:    append(qualifiers(nil), def.InterceptorBindings...),
		wrap:        def.Wrap,
		order:       order,
		enabled:     !def.Alternative || def.Priority != nil,
	}
	if b.scope == "" {
		b.scope = Dependent
	}
	if def.Priority != nil {
		p := *def.Priority
		b.priority = &p
	}
	b.injectionPoints = make([]InjectionPoint, len(def.InjectionPoints))
	for i, ip := range def.InjectionPoints {
		ip.Bean = b
		b.injectionPoints[i] = ip
	}
	return b
}

func (t *Bean) ID() string { return t.id }
func (t *Bean) Kind() Kind { return t.kind }
func (t *Bean) Scope() Scope { return t.scope }
func (t *Bean) IsAlternative() bool { return t.alternative }
func (t *Bean) IsEnabled() bool { return t.enabled }
func (t *Bean) Types() []reflect.Type { return append([]reflect.Type(nil), t.types...) }
func (t *Bean) Qualifiers() []Qualifier { return append([]Qualifier(nil), t.qualifiers...) }
func (t *Bean) InjectionPoints() []InjectionPoint { return append([]InjectionPoint(nil), t.injectionPoints...) }
func (t *Bean) InterceptorBindings() []Qualifier { return append([]Qualifier(nil), t.bindings...) }

func (t *Bean) Priority() (int, bool) {
	if t.priority == nil {
		return 0, false
	}
	return *t.priority, true
}

/**
Check if bean declares the type
*/
func (t *Bean) hasType(typ reflect.Type) bool {
	for _, declared := range t.types {
		if declared == typ {
			return true
		}
	}
	return false
}

func (t *Bean) matches(typ reflect.Type, required qualifiers) bool {
	return t.hasType(typ) && t.qualifiers.containsAll(required)
}

/**
Key of the type set, independent of declaration order
*/
func (t *Bean) typesKey() string {
	list := make([]string, len(t.types))
	for i, typ := range t.types {
		list[i] = typ.String()
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

func (t *Bean) String() string {
	return fmt.Sprintf("%s %s(%s)%v", t.kind, t.id, t.scope, t.qualifiers)
}

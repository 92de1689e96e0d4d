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
	"strings"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

var (
	ErrContextNotActive   = errors.New("context is not active")
	ErrSealed             = errors.New("registry is sealed")
	ErrNotSealed          = errors.New("registry is not sealed")
	ErrAlreadyInitialized = errors.New("container already initialized")
	ErrClosed             = errors.New("container is closed")
)

/**
No bean matches required type and qualifiers
*/
type UnsatisfiedResolutionError struct {
	Type       reflect.Type
	Qualifiers []Qualifier
	Required   string
}

func (e *UnsatisfiedResolutionError) Error() string {
	msg := fmt.Sprintf("unsatisfied dependency for type '%v' with qualifiers %v", e.Type, requiredQualifiers(e.Qualifiers))
	if e.Required != "" {
		msg += ", required by " + e.Required
	}
	return msg
}

/**
Several beans match and no alternative or priority selects one of them
*/
type AmbiguousResolutionError struct {
	Type       reflect.Type
	Qualifiers []Qualifier
	Candidates []string
	Required   string
}

func (e *AmbiguousResolutionError) Error() string {
	msg := fmt.Sprintf("ambiguous dependency for type '%v' with qualifiers %v, candidates=%v", e.Type, requiredQualifiers(e.Qualifiers), e.Candidates)
	if e.Required != "" {
		msg += ", required by " + e.Required
	}
	return msg
}

/**
Cycle of beans that can not be broken by client proxy
*/
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

type ContextNotActiveError struct {
	Scope  Scope
	BeanID string
}

func (e *ContextNotActiveError) Error() string {
	if e.BeanID == "" {
		return fmt.Sprintf("context for scope '%s' is not active", e.Scope)
	}
	return fmt.Sprintf("context for scope '%s' is not active, bean '%s'", e.Scope, e.BeanID)
}

func (e *ContextNotActiveError) Is(target error) bool {
	return target == ErrContextNotActive
}

/**
Deployment problems found on container creation. Creation is aborted.
*/
type DefinitionError struct {
	Problems []error
}

func (e *DefinitionError) Error() string {
	var out strings.Builder
	out.WriteString("definition errors: [")
	for i, p := range e.Problems {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(p.Error())
	}
	out.WriteString("]")
	return out.String()
}

func (e *DefinitionError) Unwrap() []error {
	return e.Problems
}

/**
Failure of the observer method
*/
type ObserverError struct {
	ObserverID string
	Err        error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("observer '%s' failed: %v", e.ObserverID, e.Err)
}

func (e *ObserverError) Unwrap() error {
	return e.Err
}

type MultiError []error

func (e MultiError) Error() string {
	return fmt.Sprintf("multiple errors, %v", []error(e))
}

func (e MultiError) Unwrap() []error {
	return e
}

/**
Returns nil, the single error or MultiError
*/
func combine(err []error) error {
	switch len(err) {
	case 0:
		return nil
	case 1:
		return err[0]
	default:
		return MultiError(err)
	}
}

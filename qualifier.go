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
	"sort"
	"strconv"
	"strings"
)

/**
@author Alex Shvid
*/

const (
	DefaultQualifierType = "Default"
	AnyQualifierType     = "Any"
	NamedQualifierType   = "Named"
)

var (
	/**
	Implicit qualifier of every bean and injection point without explicit qualifiers
	*/
	Default = Qualifier{Type: DefaultQualifierType}

	/**
	Every bean carries this qualifier, so it selects all beans of the required type
	*/
	Any = Qualifier{Type: AnyQualifierType}
)

/**
Qualifier is an annotation-like discriminator.

Two qualifiers are equal when they have the same Type and the same values of every member
that is not declared as nonbinding.
*/
type Qualifier struct {
	Type       string
	Members    map[string]string
	Nonbinding []string
}

/**
Named qualifier with 'value' member
*/
func Named(name string) Qualifier {
	return Qualifier{Type: NamedQualifierType, Members: map[string]string{"value": name}}
}

/**
Creates qualifier from type and pairs of member name and value.

Example:
	beans.NewQualifier("Region", "name", "eu", "zone", "a")
*/
func NewQualifier(typ string, members ...string) Qualifier {
	q := Qualifier{Type: typ}
	for i := 0; i+1 < len(members); i += 2 {
		q = q.With(members[i], members[i+1])
	}
	return q
}

/**
Returns copy of the qualifier with member set
*/
func (q Qualifier) With(member, value string) Qualifier {
	m := make(map[string]string, len(q.Members)+1)
	for k, v := range q.Members {
		m[k] = v
	}
	m[member] = value
	q.Members = m
	return q
}

/**
Returns copy of the qualifier with members marked as nonbinding
*/
func (q Qualifier) WithNonbinding(members ...string) Qualifier {
	q.Nonbinding = append(append([]string(nil), q.Nonbinding...), members...)
	return q
}

func (q Qualifier) isNonbinding(member string) bool {
	for _, n := range q.Nonbinding {
		if n == member {
			return true
		}
	}
	return false
}

func (q Qualifier) Equal(other Qualifier) bool {
	if q.Type != other.Type {
		return false
	}
	for k, v := range q.Members {
		if q.isNonbinding(k) || other.isNonbinding(k) {
			continue
		}
		if ov, ok := other.Members[k]; !ok || ov != v {
			return false
		}
	}
	for k := range other.Members {
		if q.isNonbinding(k) || other.isNonbinding(k) {
			continue
		}
		if _, ok := q.Members[k]; !ok {
			return false
		}
	}
	return true
}

/**
Canonical form with binding members only, sorted by member name, values quoted
*/
func (q Qualifier) String() string {
	var out strings.Builder
	out.WriteRune('@')
	out.WriteString(q.Type)
	var keys []string
	for k := range q.Members {
		if !q.isNonbinding(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		out.WriteRune('(')
		for i, k := range keys {
			if i > 0 {
				out.WriteRune(',')
			}
			out.WriteString(k)
			out.WriteRune('=')
			out.WriteString(strconv.Quote(q.Members[k]))
		}
		out.WriteRune(')')
	}
	return out.String()
}

type qualifiers []Qualifier

func (t qualifiers) contains(q Qualifier) bool {
	for _, c := range t {
		if c.Equal(q) {
			return true
		}
	}
	return false
}

func (t qualifiers) containsAll(required []Qualifier) bool {
	for _, r := range required {
		if !t.contains(r) {
			return false
		}
	}
	return true
}

/**
Order independent key of the qualifier set
*/
func (t qualifiers) key() string {
	list := make([]string, len(t))
	for i, q := range t {
		list[i] = q.String()
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

func (t qualifiers) String() string {
	return "[" + t.key() + "]"
}

/**
Every bean and event carries @Any; @Default is added when nothing but @Named or @Any is declared.
*/
func normalizeQualifiers(in []Qualifier) qualifiers {
	out := make(qualifiers, 0, len(in)+2)
	hasAny, hasDefault, onlyNamed := false, false, true
	for _, q := range in {
		switch q.Type {
		case AnyQualifierType:
			hasAny = true
		case DefaultQualifierType:
			hasDefault = true
		case NamedQualifierType:
		default:
			onlyNamed = false
		}
		if !out.contains(q) {
			out = append(out, q)
		}
	}
	if !hasDefault && onlyNamed {
		out = append(out, Default)
	}
	if !hasAny {
		out = append(out, Any)
	}
	return out
}

/**
Injection point without qualifiers requires @Default
*/
func requiredQualifiers(in []Qualifier) qualifiers {
	if len(in) == 0 {
		return qualifiers{Default}
	}
	return qualifiers(in)
}

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

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

/**
@author Alex Shvid
*/

const DefaultObserverPriority = 2500

type Reception int

const (
	/**
	Observer bean is created if needed
	*/
	Always Reception = iota

	/**
	Observer is notified only if the instance of its bean already exists in the active context
	*/
	IfExists
)

/**
Fired event as seen by observers
*/
type Event struct {
	Payload    interface{}
	Qualifiers []Qualifier
}

type ObserverMethod struct {
	ID string

	/**
	Declaring bean, empty for static observers
	*/
	BeanID string

	ObservedType reflect.Type
	Qualifiers   []Qualifier

	/**
	Ascending order of notification, DefaultObserverPriority if nil
	*/
	Priority  *int
	Async     bool
	Reception Reception

	/**
	Receiver is the contextual reference of the declaring bean or nil for static observers
	*/
	Notify func(ctx context.Context, receiver interface{}, event Event) error

	order int
}

/**
Completion of asynchronous observers of one fired event
*/
type Completion struct {
	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	errs []error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (t *Completion) fail(err error) {
	t.mu.Lock()
	t.errs = append(t.errs, err)
	t.mu.Unlock()
}

/**
No more asynchronous notifications would be added
*/
func (t *Completion) seal() {
	t.once.Do(func() {
		go func() {
			t.wg.Wait()
			close(t.done)
		}()
	})
}

/**
Closed when all asynchronous observers are finished
*/
func (t *Completion) Done() <-chan struct{} {
	return t.done
}

/**
Failures of asynchronous observers, valid after Done
*/
func (t *Completion) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return combine(append([]error(nil), t.errs...))
}

/**
Waits for asynchronous observers, returns their failures or context error
*/
func (t *Completion) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *container) Fire(ctx context.Context, payload interface{}, qualifiers ...Qualifier) (*Completion, error) {
	if payload == nil {
		return nil, errors.New("null event payload is not allowed")
	}
	if t.closed.Load() {
		return nil, ErrClosed
	}
	payloadType := reflect.TypeOf(payload)
	ctx, span := t.tracer.Start(ctx, "beans.fire", trace.WithAttributes(
		attribute.String("event.type", payloadType.String()),
	))
	defer span.End()

	observers := t.resolver.ResolveObservers(payloadType, qualifiers)
	t.metrics.eventsFired.Inc()
	if t.verbose {
		t.logger.Debug().Stringer("type", payloadType).Int("observers", len(observers)).Msg("fire")
	}

	event := Event{Payload: payload, Qualifiers: normalizeQualifiers(qualifiers)}
	completion := newCompletion()
	for _, obs := range observers {
		if obs.Async {
			completion.wg.Add(1)
			obs := obs
			t.executor.Submit(func() {
				defer completion.wg.Done()
				if err := t.notifyAsync(ctx, obs, event); err != nil {
					t.metrics.observerFailures.WithLabelValues("async").Inc()
					t.logger.Warn().Str("observer", obs.ID).Err(err).Msg("async observer failed")
					completion.fail(&ObserverError{ObserverID: obs.ID, Err: err})
				}
			})
			continue
		}
		if err := t.notify(ctx, obs, event); err != nil {
			t.metrics.observerFailures.WithLabelValues("sync").Inc()
			span.RecordError(err)
			completion.seal()
			return completion, &ObserverError{ObserverID: obs.ID, Err: err}
		}
	}
	completion.seal()
	return completion, nil
}

/**
Asynchronous observer runs with its own request context, detached from cancellation of the caller
*/
func (t *container) notifyAsync(ctx context.Context, obs *ObserverMethod, event Event) (err error) {
	ctx, _ = t.request.Activate(context.WithoutCancel(ctx))
	defer func() {
		if e := t.request.Terminate(ctx); e != nil && err == nil {
			err = e
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return t.notify(ctx, obs, event)
}

func (t *container) notify(ctx context.Context, obs *ObserverMethod, event Event) error {
	if obs.BeanID == "" {
		return obs.Notify(ctx, nil, event)
	}
	b, _ := t.registry.Bean(obs.BeanID)

	if obs.Reception == IfExists {
		c := t.contexts[b.scope]
		if !c.IsActive(ctx) {
			return nil
		}
		ci, err := c.Get(ctx, b.id)
		if err != nil || ci == nil {
			return nil
		}
		receiver, err := t.reference(ctx, b, nil, nil)
		if err != nil {
			return err
		}
		return obs.Notify(ctx, receiver, event)
	}

	// dependent receiver lives for the notification only
	owner := newCreationalContext(nil, nil)
	defer owner.release()
	receiver, err := t.reference(ctx, b, owner, nil)
	if err != nil {
		return err
	}
	return obs.Notify(ctx, receiver, event)
}

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
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

/**
@author Alex Shvid
*/

const metricsNamespace = "beans"

type metrics struct {
	instancesCreated   *prometheus.CounterVec
	instancesDestroyed *prometheus.CounterVec
	resolutionFailures *prometheus.CounterVec
	proxyInvocations   *prometheus.CounterVec
	eventsFired        prometheus.Counter
	observerFailures   *prometheus.CounterVec
}

/**
Collectors are registered only when registerer is given
*/
func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		instancesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "instances_created_total",
			Help:      "Total number of contextual instances created",
		}, []string{"scope"}),
		instancesDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "instances_destroyed_total",
			Help:      "Total number of contextual instances destroyed",
		}, []string{"scope"}),
		resolutionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolution_failures_total",
			Help:      "Total number of failed dynamic resolutions",
		}, []string{"kind"}),
		proxyInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "proxy_invocations_total",
			Help:      "Total number of business method invocations through client proxies",
		}, []string{"bean"}),
		eventsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_fired_total",
			Help:      "Total number of fired events",
		}),
		observerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "observer_failures_total",
			Help:      "Total number of failed observer notifications",
		}, []string{"mode"}),
	}
	if registerer != nil {
		for _, c := range []prometheus.Collector{
			m.instancesCreated,
			m.instancesDestroyed,
			m.resolutionFailures,
			m.proxyInvocations,
			m.eventsFired,
			m.observerFailures,
		} {
			if err := registerer.Register(c); err != nil {
				return nil, errors.Wrap(err, "register metrics")
			}
		}
	}
	return m, nil
}

func (t *metrics) resolutionFailed(err error) {
	switch err.(type) {
	case *UnsatisfiedResolutionError:
		t.resolutionFailures.WithLabelValues("unsatisfied").Inc()
	case *AmbiguousResolutionError:
		t.resolutionFailures.WithLabelValues("ambiguous").Inc()
	}
}

/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package http

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

// api.ConfigCallbackHandler
//
// Metrics are registered with a Prometheus registerer. Names are sanitized to the Prometheus
// charset, defining the same name twice returns the same metric.
type httpConfig struct {
	registerer prometheus.Registerer

	mutex    sync.Mutex
	counters map[string]*counterMetric
	gauges   map[string]*gaugeMetric
}

// NewConfigCallbacks returns the callbacks plugin parsers use to define metrics on reg.
func NewConfigCallbacks(reg prometheus.Registerer) api.ConfigCallbackHandler {
	return &httpConfig{
		registerer: reg,
		counters:   map[string]*counterMetric{},
		gauges:     map[string]*gaugeMetric{},
	}
}

func (c *httpConfig) DefineCounterMetric(name string) api.CounterMetric {
	name = metricName(name)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if m, ok := c.counters[name]; ok {
		return m
	}

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "Counter defined by a filter plugin."})
	registered, ok := register(c.registerer, counter).(prometheus.Counter)
	if !ok {
		api.LogErrorf("metric %s is already registered with another type", name)
		registered = counter
	}
	m := &counterMetric{counter: registered}
	c.counters[name] = m
	return m
}

func (c *httpConfig) DefineGaugeMetric(name string) api.GaugeMetric {
	name = metricName(name)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if m, ok := c.gauges[name]; ok {
		return m
	}

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: "Gauge defined by a filter plugin."})
	registered, ok := register(c.registerer, gauge).(prometheus.Gauge)
	if !ok {
		api.LogErrorf("metric %s is already registered with another type", name)
		registered = gauge
	}
	m := &gaugeMetric{gauge: registered}
	c.gauges[name] = m
	return m
}

// register returns the collector already registered under the same name if there is one.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		api.LogErrorf("register metric: %v", err)
	}
	return c
}

func metricName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		}
		return '_'
	}, name)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

type counterMetric struct {
	counter prometheus.Counter
}

func (m *counterMetric) Increment(offset int64) {
	if offset < 0 {
		api.LogWarnf("counter %s can not decrease", m.counter.Desc())
		return
	}
	m.counter.Add(float64(offset))
}

func (m *counterMetric) Get() uint64 {
	metric := &dto.Metric{}
	if err := m.counter.Write(metric); err != nil {
		return 0
	}
	return uint64(metric.GetCounter().GetValue())
}

// Record moves the counter up to value, a counter never goes down.
func (m *counterMetric) Record(value uint64) {
	if current := m.Get(); value > current {
		m.counter.Add(float64(value - current))
	}
}

type gaugeMetric struct {
	gauge prometheus.Gauge
}

func (m *gaugeMetric) Increment(offset int64) {
	m.gauge.Add(float64(offset))
}

func (m *gaugeMetric) Get() uint64 {
	metric := &dto.Metric{}
	if err := m.gauge.Write(metric); err != nil {
		return 0
	}
	if v := metric.GetGauge().GetValue(); v > 0 {
		return uint64(v)
	}
	return 0
}

func (m *gaugeMetric) Record(value uint64) {
	m.gauge.Set(float64(value))
}

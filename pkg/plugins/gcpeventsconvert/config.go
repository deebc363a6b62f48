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

package gcpeventsconvert

import (
	"errors"
	"fmt"

	xds "github.com/cncf/xds/go/xds/type/v3"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
	"github.com/envoyproxy/gcp-events-convert/pkg/http"
)

const (
	Name = "gcp_events_convert"

	// DefaultContentType is the content type Pub/Sub push subscriptions in front of this
	// filter are expected to use.
	DefaultContentType = "application/grpc+cloudevent+json"
)

func init() {
	http.RegisterHttpFilterConfigFactoryAndParser(Name, ConfigFactory, &parser{})
}

type config struct {
	contentType string
	metrics     *metrics
}

type metrics struct {
	converted          api.CounterMetric
	bufferUnavailable  api.CounterMetric
	envelopeParseError api.CounterMetric
	unbindError        api.CounterMetric
	bindError          api.CounterMetric
}

func defineMetrics(callbacks api.ConfigCallbackHandler) *metrics {
	if callbacks == nil {
		return nil
	}
	return &metrics{
		converted:          callbacks.DefineCounterMetric(Name + "_converted_total"),
		bufferUnavailable:  callbacks.DefineCounterMetric(Name + "_buffer_unavailable_total"),
		envelopeParseError: callbacks.DefineCounterMetric(Name + "_envelope_parse_error_total"),
		unbindError:        callbacks.DefineCounterMetric(Name + "_unbind_error_total"),
		bindError:          callbacks.DefineCounterMetric(Name + "_bind_error_total"),
	}
}

func (m *metrics) recordConverted() {
	if m == nil {
		return
	}
	m.converted.Increment(1)
}

func (m *metrics) recordFailure(err error) {
	if m == nil {
		return
	}
	switch {
	case errors.Is(err, ErrBufferUnavailable):
		m.bufferUnavailable.Increment(1)
	case errors.Is(err, ErrEnvelopeParse):
		m.envelopeParseError.Increment(1)
	case errors.Is(err, ErrUnbind):
		m.unbindError.Increment(1)
	case errors.Is(err, ErrBind):
		m.bindError.Increment(1)
	}
}

type parser struct {
}

// Parse reads a TypedStruct whose value holds the trigger content type:
//
//	content_type: application/grpc+cloudevent+json
func (p *parser) Parse(any *anypb.Any, callbacks api.ConfigCallbackHandler) (interface{}, error) {
	configStruct := &xds.TypedStruct{}
	if err := any.UnmarshalTo(configStruct); err != nil {
		return nil, err
	}

	v := configStruct.Value.AsMap()
	conf := &config{}
	contentType, ok := v["content_type"]
	if !ok {
		return nil, errors.New("missing content_type")
	}
	str, ok := contentType.(string)
	if !ok {
		return nil, fmt.Errorf("content_type: expect string while got %T", contentType)
	}
	if str == "" {
		return nil, errors.New("content_type: must not be empty")
	}
	conf.contentType = str
	conf.metrics = defineMetrics(callbacks)
	return conf, nil
}

// Merge configuration from the inherited parent configuration
func (p *parser) Merge(parent interface{}, child interface{}) interface{} {
	parentConfig := parent.(*config)
	childConfig := child.(*config)

	// copy one, do not update parentConfig directly.
	newConfig := *parentConfig
	if childConfig.contentType != "" {
		newConfig.contentType = childConfig.contentType
	}
	return &newConfig
}

func ConfigFactory(c interface{}) api.StreamFilterFactory {
	conf, ok := c.(*config)
	if !ok {
		panic("unexpected config type")
	}

	return func(callbacks api.FilterCallbackHandler) api.StreamFilter {
		return &filter{
			callbacks: callbacks,
			config:    conf,
		}
	}
}

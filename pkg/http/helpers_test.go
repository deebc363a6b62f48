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
	"bytes"
	"errors"
	"fmt"
	"testing"

	xds "github.com/cncf/xds/go/xds/type/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

const testPlugin = "test_plugin"

func init() {
	RegisterHttpFilterConfigFactoryAndParser(testPlugin, testConfigFactory, &testParser{})
}

// events collects what test filters saw, tests reset it.
var events []string

func record(format string, v ...any) {
	events = append(events, fmt.Sprintf(format, v...))
}

type testConfig struct {
	id     string
	hold   bool
	upper  bool
	header bool
	panics bool
	// return TrailerStopIteration, or status if set
	stopTrailers bool
	status       api.StatusType
}

type testParser struct{}

func (p *testParser) Parse(any *anypb.Any, callbacks api.ConfigCallbackHandler) (interface{}, error) {
	configStruct := &xds.TypedStruct{}
	if err := any.UnmarshalTo(configStruct); err != nil {
		return nil, err
	}
	v := configStruct.Value.AsMap()
	id, _ := v["id"].(string)
	if id == "" {
		return nil, errors.New("missing id")
	}
	conf := &testConfig{id: id}
	conf.hold, _ = v["hold"].(bool)
	conf.upper, _ = v["upper"].(bool)
	conf.header, _ = v["header"].(bool)
	conf.panics, _ = v["panic"].(bool)
	conf.stopTrailers, _ = v["stop_trailers"].(bool)
	if status, ok := v["trailer_status"].(float64); ok {
		conf.status = api.StatusType(status)
	}
	if callbacks != nil {
		callbacks.DefineCounterMetric(id + "_parsed_total").Increment(1)
	}
	return conf, nil
}

// Merge keeps the parent's behaviour flags and takes the child's id.
func (p *testParser) Merge(parent interface{}, child interface{}) interface{} {
	merged := *parent.(*testConfig)
	merged.id = child.(*testConfig).id
	return &merged
}

func testConfigFactory(c interface{}) api.StreamFilterFactory {
	conf := c.(*testConfig)
	return func(callbacks api.FilterCallbackHandler) api.StreamFilter {
		return &testFilter{conf: conf, callbacks: callbacks}
	}
}

type testFilter struct {
	api.PassThroughStreamFilter

	conf      *testConfig
	callbacks api.FilterCallbackHandler
	decoder   api.DecoderFilterCallbacks
}

func (f *testFilter) SetDecoderFilterCallbacks(callbacks api.DecoderFilterCallbacks) {
	f.decoder = callbacks
}

func (f *testFilter) DecodeHeaders(header api.RequestHeaderMap, endStream bool) api.StatusType {
	record("%s headers end=%t", f.conf.id, endStream)
	if f.conf.panics {
		panic("boom")
	}
	if f.conf.header {
		header.Add("x-test-"+f.conf.id, f.callbacks.StreamInfo().StreamID())
	}
	if f.conf.hold && !endStream {
		return api.HeaderStopIteration
	}
	return api.HeaderContinue
}

func (f *testFilter) DecodeData(buffer api.BufferInstance, endStream bool) api.StatusType {
	record("%s data %q end=%t buffered=%t", f.conf.id, buffer.String(), endStream, f.decoder.DecodingBuffer() != nil)
	if f.conf.hold && !endStream {
		return api.DataStopIterationAndBuffer
	}
	if f.conf.upper {
		_ = buffer.Set(bytes.ToUpper(buffer.Bytes()))
	}
	return api.DataContinue
}

func (f *testFilter) DecodeTrailers(trailers api.RequestTrailerMap) api.StatusType {
	record("%s trailers", f.conf.id)
	return f.trailerStatus()
}

func (f *testFilter) EncodeTrailers(trailers api.ResponseTrailerMap) api.StatusType {
	record("%s encode trailers", f.conf.id)
	return f.trailerStatus()
}

func (f *testFilter) trailerStatus() api.StatusType {
	switch {
	case f.conf.status != 0:
		return f.conf.status
	case f.conf.stopTrailers:
		return api.TrailerStopIteration
	}
	return api.TrailerContinue
}

func (f *testFilter) EncodeHeaders(header api.ResponseHeaderMap, endStream bool) api.StatusType {
	status, _ := header.Status()
	record("%s encode headers %d", f.conf.id, status)
	if f.conf.header {
		header.Set("x-test-"+f.conf.id, "seen")
	}
	return api.HeaderContinue
}

func (f *testFilter) EncodeData(buffer api.BufferInstance, endStream bool) api.StatusType {
	if f.conf.upper {
		_ = buffer.Set(bytes.ToUpper(buffer.Bytes()))
	}
	return api.DataContinue
}

func (f *testFilter) OnDestroy(reason api.DestroyReason) {
	record("%s destroy %s", f.conf.id, reason)
}

func testFilterConfig(t *testing.T, value map[string]interface{}) FilterConfig {
	t.Helper()
	v, err := structpb.NewStruct(value)
	require.NoError(t, err)
	any, err := anypb.New(&xds.TypedStruct{Value: v})
	require.NoError(t, err)
	return FilterConfig{Name: testPlugin, Config: any}
}

func newTestChain(t *testing.T, values ...map[string]interface{}) *FilterChain {
	t.Helper()
	configs := make([]FilterConfig, len(values))
	for i, v := range values {
		configs[i] = testFilterConfig(t, v)
	}
	chain, err := NewFilterChain(configs, nil)
	require.NoError(t, err)
	events = nil
	return chain
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := api.GetCommonCAPI()
	api.SetCommonCAPI(api.NewZapCommonCAPI(zap.New(core)))
	t.Cleanup(func() { api.SetCommonCAPI(prev) })
	return logs
}

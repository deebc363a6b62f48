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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

func TestRegisteredFilters(t *testing.T) {
	assert.Contains(t, RegisteredFilters(), testPlugin)
	assert.Panics(t, func() { RegisterHttpFilterConfigFactoryAndParser("nil_factory", nil, nil) })
}

func TestNewFilterChain(t *testing.T) {
	chain := newTestChain(t, map[string]interface{}{"id": "a"}, map[string]interface{}{"id": "b"})
	assert.Equal(t, []string{testPlugin, testPlugin}, chain.Names())

	_, err := NewFilterChain([]FilterConfig{testFilterConfig(t, map[string]interface{}{})}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
	assert.Contains(t, err.Error(), testPlugin)
}

func TestUnknownPluginPassesThrough(t *testing.T) {
	logs := observeLogs(t)
	chain, err := NewFilterChain([]FilterConfig{{Name: "no_such_plugin"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("plugin no_such_plugin not found").Len())

	s := chain.NewStream("", "HTTP/1.1", "127.0.0.1:1234")
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, api.HeaderContinue, s.DecodeHeaders(NewHeaderMap(nil), false))
	data, status := s.DecodeData([]byte("body"), true)
	assert.Equal(t, api.DataContinue, status)
	assert.Equal(t, []byte("body"), data)
	s.Destroy(api.Normal)
}

func TestStreamPassThrough(t *testing.T) {
	chain := newTestChain(t, map[string]interface{}{"id": "a"})
	s := chain.NewStream("stream-1", "HTTP/1.1", "127.0.0.1:1234")

	assert.Equal(t, "stream-1", s.ID())
	assert.Equal(t, api.HeaderContinue, s.DecodeHeaders(NewHeaderMap(nil), false))
	assert.False(t, s.HeadersHeld())

	data, status := s.DecodeData([]byte("abc"), false)
	assert.Equal(t, api.DataContinue, status)
	assert.Equal(t, []byte("abc"), data)
	data, status = s.DecodeData(nil, true)
	assert.Equal(t, api.DataContinue, status)
	assert.Empty(t, data)

	assert.Equal(t, []string{
		`a headers end=false`,
		`a data "abc" end=false buffered=false`,
		`a data "" end=true buffered=false`,
	}, events)
}

func TestStreamHoldsHeadersAndBuffers(t *testing.T) {
	chain := newTestChain(t,
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": "b", "hold": true, "upper": true},
		map[string]interface{}{"id": "c"},
	)
	s := chain.NewStream("stream-1", "HTTP/1.1", "")

	assert.Equal(t, api.HeaderStopIteration, s.DecodeHeaders(NewHeaderMap(nil), false))
	assert.True(t, s.HeadersHeld())

	data, status := s.DecodeData([]byte("he"), false)
	assert.Equal(t, api.DataStopIterationAndBuffer, status)
	assert.Nil(t, data)

	data, status = s.DecodeData([]byte("llo"), true)
	assert.Equal(t, api.DataContinue, status)
	assert.Equal(t, []byte("HELLO"), data)
	assert.False(t, s.HeadersHeld())

	s.Destroy(api.Normal)
	s.Destroy(api.Terminate)

	assert.Equal(t, []string{
		`a headers end=false`,
		`b headers end=false`,
		`a data "he" end=false buffered=false`,
		`b data "he" end=false buffered=true`,
		`a data "llo" end=true buffered=false`,
		`b data "hello" end=true buffered=true`,
		`c headers end=false`,
		`c data "HELLO" end=true buffered=false`,
		`a destroy Normal`,
		`b destroy Normal`,
		`c destroy Normal`,
	}, events)
}

func TestStreamHeaderOnlyRequest(t *testing.T) {
	chain := newTestChain(t, map[string]interface{}{"id": "a", "hold": true})
	s := chain.NewStream("", "", "")

	assert.Equal(t, api.HeaderContinue, s.DecodeHeaders(NewHeaderMap(nil), true))
	assert.False(t, s.HeadersHeld())
}

func TestStreamRecoversPanic(t *testing.T) {
	logs := observeLogs(t)
	chain := newTestChain(t, map[string]interface{}{"id": "p", "panic": true}, map[string]interface{}{"id": "b"})
	s := chain.NewStream("stream-9", "", "")

	assert.Equal(t, api.HeaderContinue, s.DecodeHeaders(NewHeaderMap(nil), false))
	assert.Equal(t, []string{`p headers end=false`, `b headers end=false`}, events)

	panics := logs.FilterMessageSnippet("panic in DecodeHeader")
	require.Equal(t, 1, panics.Len())
	assert.Contains(t, panics.All()[0].Message, "stream-9")
}

func TestStreamTrailersAndResponse(t *testing.T) {
	chain := newTestChain(t,
		map[string]interface{}{"id": "a", "header": true},
		map[string]interface{}{"id": "b", "upper": true},
	)
	s := chain.NewStream("stream-1", "", "")
	headers := NewHeaderMap([][2]string{{":path", "/"}})

	s.DecodeHeaders(headers, false)
	s.DecodeData([]byte("x"), true)
	assert.Equal(t, api.TrailerContinue, s.DecodeTrailers(NewHeaderMap(nil)))

	values := headers.Values("x-test-a")
	assert.Equal(t, []string{"stream-1"}, values)
	assert.Same(t, headers, s.RequestHeaders())

	events = nil
	response := NewHeaderMap(nil)
	response.status = 200
	assert.Equal(t, api.HeaderContinue, s.EncodeHeaders(response, false))
	assert.Equal(t, []byte("BODY"), s.EncodeData([]byte("body"), true))
	assert.Equal(t, api.TrailerContinue, s.EncodeTrailers(NewHeaderMap(nil)))

	assert.Equal(t, []string{`b encode headers 200`, `a encode headers 200`, `b encode trailers`, `a encode trailers`}, events)
	v, _ := response.Get("x-test-a")
	assert.Equal(t, "seen", v)
}

func TestStreamTrailerStatuses(t *testing.T) {
	logs := observeLogs(t)
	chain := newTestChain(t,
		map[string]interface{}{"id": "a", "stop_trailers": true},
		map[string]interface{}{"id": "b", "trailer_status": float64(api.DataContinue)},
	)
	s := chain.NewStream("stream-3", "", "")

	s.DecodeHeaders(NewHeaderMap([][2]string{{":path", "/"}}), false)
	s.DecodeData([]byte("x"), false)
	assert.Equal(t, api.TrailerContinue, s.DecodeTrailers(NewHeaderMap(nil)))
	assert.Equal(t, api.TrailerContinue, s.EncodeTrailers(NewHeaderMap(nil)))

	// both filters see the trailers even though a stopped
	assert.Contains(t, events, "a trailers")
	assert.Contains(t, events, "b trailers")
	assert.Contains(t, events, "b encode trailers")
	assert.Contains(t, events, "a encode trailers")

	stopped := logs.FilterLevelExact(zapcore.DebugLevel).FilterMessageSnippet("plugin a stopped in DecodeTrailers")
	assert.Equal(t, 1, stopped.Len())
	stopped = logs.FilterLevelExact(zapcore.DebugLevel).FilterMessageSnippet("plugin a stopped in EncodeTrailers")
	assert.Equal(t, 1, stopped.Len())

	unexpected := logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessageSnippet("plugin b returned DataContinue from DecodeTrailers")
	assert.Equal(t, 1, unexpected.Len())
}

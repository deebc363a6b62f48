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
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	request *nethttp.Request
	body    string
}

func (u *upstream) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	body, _ := io.ReadAll(r.Body)
	u.request = r
	u.body = string(body)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(nethttp.StatusAccepted)
	_, _ = w.Write([]byte("ok"))
}

func TestHandlerPassThrough(t *testing.T) {
	next := &upstream{}
	h := NewHandler(newTestChain(t, map[string]interface{}{"id": "a"}), next)

	req := httptest.NewRequest(nethttp.MethodPost, "/events?q=1", strings.NewReader("payload"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, nethttp.StatusAccepted, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "payload", next.body)
	assert.Equal(t, "application/json", next.request.Header.Get("Content-Type"))
	assert.Equal(t, "/events", next.request.URL.Path)
	assert.Equal(t, int64(7), next.request.ContentLength)
}

func TestHandlerRewritesRequest(t *testing.T) {
	next := &upstream{}
	chain := newTestChain(t, map[string]interface{}{"id": "a", "hold": true, "upper": true, "header": true})
	h := NewHandler(chain, next, WithChunkSize(2))

	req := httptest.NewRequest(nethttp.MethodPost, "/events", strings.NewReader("hello world"))
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "HELLO WORLD", next.body)
	assert.Equal(t, int64(11), next.request.ContentLength)
	assert.Equal(t, "11", next.request.Header.Get("Content-Length"))
	assert.Equal(t, "req-1", next.request.Header.Get("X-Test-A"))
	assert.Equal(t, "req-1", next.request.Header.Get("X-Request-Id"))
	assert.Equal(t, nethttp.MethodPost, next.request.Method)

	assert.Equal(t, "seen", rec.Header().Get("X-Test-A"))
	assert.Equal(t, "OK", rec.Body.String())
	assert.Contains(t, events, `a destroy Normal`)
}

func TestHandlerHeaderOnlyRequest(t *testing.T) {
	next := &upstream{}
	h := NewHandler(newTestChain(t, map[string]interface{}{"id": "a", "hold": true}), next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/", nil))

	assert.Equal(t, nethttp.StatusAccepted, rec.Code)
	assert.Empty(t, next.body)
	assert.Equal(t, []string{`a headers end=true`, `a encode headers 202`, `a destroy Normal`}, events)
}

func TestHandlerRequestTooLarge(t *testing.T) {
	next := &upstream{}
	h := NewHandler(newTestChain(t, map[string]interface{}{"id": "a"}), next, WithMaxRequestBytes(4))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/", strings.NewReader("too large")))

	assert.Equal(t, nethttp.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, next.request)
}

func TestHandlerUnknownLengthBody(t *testing.T) {
	next := &upstream{}
	h := NewHandler(newTestChain(t, map[string]interface{}{"id": "a", "hold": true}), next)

	req := httptest.NewRequest(nethttp.MethodPost, "/", io.NopCloser(strings.NewReader("abc")))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotNil(t, next.request)
	assert.Equal(t, "abc", next.body)
	assert.Equal(t, int64(3), next.request.ContentLength)
}

func TestHandlerRoutes(t *testing.T) {
	next := &upstream{}
	chain := newTestChain(t, map[string]interface{}{"id": "a", "header": true})
	require.NoError(t, chain.AddRoute(RouteConfig{
		PathPrefix: "/routed",
		Filters:    []FilterConfig{testFilterConfig(t, map[string]interface{}{"id": "r"})},
	}, nil))
	h := NewHandler(chain, next)

	req := httptest.NewRequest(nethttp.MethodGet, "/routed/path?q=1", nil)
	req.Header.Set("X-Request-Id", "req-9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-9", next.request.Header.Get("X-Test-R"))
	assert.Empty(t, next.request.Header.Get("X-Test-A"))

	req = httptest.NewRequest(nethttp.MethodGet, "/other", nil)
	req.Header.Set("X-Request-Id", "req-10")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-10", next.request.Header.Get("X-Test-A"))
}

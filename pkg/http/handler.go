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
	"io"
	nethttp "net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

const defaultChunkSize = 32 * 1024

// Handler runs requests through a FilterChain before handing them to the next handler. The
// request body is read through the chain in chunks and the forwarded bytes replace it, so
// the next handler always sees a request with a known Content-Length.
type Handler struct {
	chain           *FilterChain
	next            nethttp.Handler
	chunkSize       int
	maxRequestBytes int64
}

type HandlerOption func(*Handler)

// WithChunkSize sets how many body bytes are read per DecodeData call.
func WithChunkSize(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.chunkSize = n
		}
	}
}

// WithMaxRequestBytes rejects larger request bodies with 413. Zero means no limit.
func WithMaxRequestBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxRequestBytes = n
	}
}

func NewHandler(chain *FilterChain, next nethttp.Handler, opts ...HandlerOption) *Handler {
	h := &Handler{chain: chain, next: next, chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	stream := h.chain.NewRouteStream(r.URL.Path, r.Header.Get("X-Request-Id"), r.Proto, r.RemoteAddr)
	defer stream.Destroy(api.Normal)

	headers := requestHeaderMap(r)
	endStream := r.Body == nil || r.Body == nethttp.NoBody || r.ContentLength == 0
	stream.DecodeHeaders(headers, endStream)

	if !endStream {
		body := io.Reader(r.Body)
		if h.maxRequestBytes > 0 {
			body = nethttp.MaxBytesReader(w, r.Body, h.maxRequestBytes)
		}
		forwarded, err := h.decodeBody(stream, body)
		if err != nil {
			var tooLarge *nethttp.MaxBytesError
			if errors.As(err, &tooLarge) {
				nethttp.Error(w, "request body too large", nethttp.StatusRequestEntityTooLarge)
				return
			}
			api.LogWarnf("stream %s: read request body: %v", stream.ID(), err)
			nethttp.Error(w, "failed to read request body", nethttp.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(forwarded))
		r.ContentLength = int64(len(forwarded))
		r.TransferEncoding = nil
		r.Header.Set("Content-Length", strconv.Itoa(len(forwarded)))

		if len(r.Trailer) > 0 {
			stream.DecodeTrailers(NewHeaderMap(headerPairs(r.Trailer)))
		}
	}

	applyRequestHeaders(stream.ID(), r, headers)

	rw := &responseWriter{ResponseWriter: w, stream: stream}
	h.next.ServeHTTP(rw, r)
	rw.finish()
}

func (h *Handler) decodeBody(stream *Stream, body io.Reader) ([]byte, error) {
	var forwarded bytes.Buffer
	chunk := make([]byte, h.chunkSize)
	for {
		n, err := body.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, err
		}
		end := err == io.EOF
		if n > 0 || end {
			data, _ := stream.DecodeData(chunk[:n], end)
			forwarded.Write(data)
		}
		if end {
			return forwarded.Bytes(), nil
		}
	}
}

func headerPairs(header nethttp.Header) [][2]string {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs [][2]string
	for _, k := range keys {
		for _, v := range header[k] {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	return pairs
}

func requestHeaderMap(r *nethttp.Request) *HeaderMap {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	pairs := [][2]string{
		{":method", r.Method},
		{":scheme", scheme},
		{":authority", r.Host},
		{":path", r.URL.RequestURI()},
	}
	return NewHeaderMap(append(pairs, headerPairs(r.Header)...))
}

// applyRequestHeaders copies the filters' changes back to r.
func applyRequestHeaders(streamID string, r *nethttp.Request, headers *HeaderMap) {
	if len(headers.Mutations()) == 0 {
		return
	}

	contentLength := r.Header.Get("Content-Length")
	header := nethttp.Header{}
	headers.Range(func(key, value string) bool {
		if !strings.HasPrefix(key, ":") {
			header.Add(textproto.CanonicalMIMEHeaderKey(key), value)
		}
		return true
	})
	if contentLength != "" {
		header.Set("Content-Length", contentLength)
	}
	r.Header = header

	if method := headers.Method(); method != "" {
		r.Method = method
	}
	if host := headers.Host(); host != "" {
		r.Host = host
	}
	if path := headers.Path(); path != "" && path != r.URL.RequestURI() {
		u, err := url.ParseRequestURI(path)
		if err != nil {
			api.LogWarnf("stream %s: ignoring invalid :path %q: %v", streamID, path, err)
			return
		}
		r.URL.Path, r.URL.RawPath, r.URL.RawQuery = u.Path, u.RawPath, u.RawQuery
		r.RequestURI = ""
	}
}

type responseWriter struct {
	nethttp.ResponseWriter
	stream      *Stream
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	headers := NewHeaderMap(headerPairs(w.Header()))
	headers.status = code
	w.stream.EncodeHeaders(headers, false)
	if len(headers.Mutations()) > 0 {
		header := w.Header()
		for k := range header {
			delete(header, k)
		}
		headers.Range(func(key, value string) bool {
			header.Add(textproto.CanonicalMIMEHeaderKey(key), value)
			return true
		})
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(nethttp.StatusOK)
	}
	if _, err := w.ResponseWriter.Write(w.stream.EncodeData(p, false)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(nethttp.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() nethttp.ResponseWriter {
	return w.ResponseWriter
}

func (w *responseWriter) finish() {
	if !w.wroteHeader {
		return
	}
	if data := w.stream.EncodeData(nil, true); len(data) > 0 {
		_, _ = w.ResponseWriter.Write(data)
	}
}

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
	"strconv"
	"strings"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

// HeaderOp is the kind of change a filter made to a header map.
type HeaderOp int

const (
	HeaderSet HeaderOp = iota
	HeaderAdd
	HeaderDel
)

func (op HeaderOp) String() string {
	switch op {
	case HeaderSet:
		return "set"
	case HeaderAdd:
		return "add"
	case HeaderDel:
		return "del"
	}
	return "unknown"
}

// HeaderMutation is one change made to a header map, in the order filters made them.
type HeaderMutation struct {
	Op    HeaderOp
	Key   string
	Value string
}

type headerEntry struct {
	key   string
	value string
}

// HeaderMap implements the api header and trailer maps.
//
// Keys are stored lowercase and entries keep their insertion order. Streams are driven from a
// single goroutine so no locking is done here.
type HeaderMap struct {
	entries   []headerEntry
	mutations []HeaderMutation
	status    int
}

var (
	_ api.RequestHeaderMap   = (*HeaderMap)(nil)
	_ api.RequestTrailerMap  = (*HeaderMap)(nil)
	_ api.ResponseHeaderMap  = (*HeaderMap)(nil)
	_ api.ResponseTrailerMap = (*HeaderMap)(nil)
)

// NewHeaderMap copies pairs into a header map the host hands to filters.
func NewHeaderMap(pairs [][2]string) *HeaderMap {
	h := &HeaderMap{entries: make([]headerEntry, 0, len(pairs))}
	for _, p := range pairs {
		h.entries = append(h.entries, headerEntry{strings.ToLower(p[0]), p[1]})
	}
	return h
}

func (h *HeaderMap) Get(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, e := range h.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

func (h *HeaderMap) Values(key string) []string {
	key = strings.ToLower(key)
	var values []string
	for _, e := range h.entries {
		if e.key == key {
			values = append(values, e.value)
		}
	}
	return values
}

// Set replaces the first value of key where it is and drops the others. A new key is appended.
func (h *HeaderMap) Set(key, value string) {
	key = strings.ToLower(key)
	h.entries = setEntry(h.entries, key, value)
	h.mutations = append(h.mutations, HeaderMutation{HeaderSet, key, value})
}

func setEntry(entries []headerEntry, key, value string) []headerEntry {
	found := false
	kept := entries[:0]
	for _, e := range entries {
		if e.key != key {
			kept = append(kept, e)
		} else if !found {
			found = true
			kept = append(kept, headerEntry{key, value})
		}
	}
	if !found {
		kept = append(kept, headerEntry{key, value})
	}
	return kept
}

func (h *HeaderMap) Add(key, value string) {
	key = strings.ToLower(key)
	h.entries = append(h.entries, headerEntry{key, value})
	h.mutations = append(h.mutations, HeaderMutation{HeaderAdd, key, value})
}

func (h *HeaderMap) Del(key string) {
	key = strings.ToLower(key)
	h.remove(key)
	h.mutations = append(h.mutations, HeaderMutation{Op: HeaderDel, Key: key})
}

func (h *HeaderMap) remove(key string) {
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.key != key {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

func (h *HeaderMap) Range(f func(key, value string) bool) {
	for _, e := range h.entries {
		if !f(e.key, e.value) {
			return
		}
	}
}

func (h *HeaderMap) pseudo(key string) string {
	v, _ := h.Get(key)
	return v
}

func (h *HeaderMap) Scheme() string { return h.pseudo(":scheme") }
func (h *HeaderMap) Method() string { return h.pseudo(":method") }
func (h *HeaderMap) Host() string   { return h.pseudo(":authority") }
func (h *HeaderMap) Path() string   { return h.pseudo(":path") }

// Status returns the status the host set, or the :status pseudo header.
func (h *HeaderMap) Status() (int, bool) {
	if h.status != 0 {
		return h.status, true
	}
	code, err := strconv.Atoi(h.pseudo(":status"))
	return code, err == nil
}

// Pairs returns the current entries in order.
func (h *HeaderMap) Pairs() [][2]string {
	pairs := make([][2]string, 0, len(h.entries))
	for _, e := range h.entries {
		pairs = append(pairs, [2]string{e.key, e.value})
	}
	return pairs
}

// Mutations returns the changes filters made since the map was created.
func (h *HeaderMap) Mutations() []HeaderMutation {
	return h.mutations
}

// api.BufferInstance
type httpBuffer struct {
	data []byte
}

var _ api.BufferInstance = (*httpBuffer)(nil)

func newHttpBuffer(data []byte) *httpBuffer {
	return &httpBuffer{data: append([]byte(nil), data...)}
}

func (b *httpBuffer) Write(p []byte) (n int, err error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *httpBuffer) WriteString(s string) (n int, err error) {
	b.data = append(b.data, s...)
	return len(s), nil
}

func (b *httpBuffer) Bytes() []byte {
	return b.data
}

func (b *httpBuffer) Drain(offset int) {
	if offset > len(b.data) {
		offset = len(b.data)
	}
	if offset <= 0 {
		return
	}
	b.data = b.data[offset:]
}

func (b *httpBuffer) Len() int {
	return len(b.data)
}

func (b *httpBuffer) Reset() {
	b.data = nil
}

func (b *httpBuffer) String() string {
	return string(b.data)
}

func (b *httpBuffer) Append(data []byte) error {
	_, err := b.Write(data)
	return err
}

func (b *httpBuffer) Set(data []byte) error {
	b.data = append([]byte(nil), data...)
	return nil
}

func (b *httpBuffer) SetString(s string) error {
	b.data = []byte(s)
	return nil
}

func (b *httpBuffer) Prepend(data []byte) error {
	b.data = append(append([]byte(nil), data...), b.data...)
	return nil
}

func (b *httpBuffer) AppendString(s string) error {
	_, err := b.WriteString(s)
	return err
}

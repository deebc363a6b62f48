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

// Package fake provides in-memory implementations of the header map and buffer interfaces
// for tests.
package fake

import (
	"bytes"
	"strings"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

type entry struct {
	key   string
	value string
}

// HeaderMap is an ordered header map with lowercase keys. It satisfies every header and
// trailer map interface in package api.
type HeaderMap struct {
	entries []entry
	status  int
}

var (
	_ api.RequestHeaderMap   = (*HeaderMap)(nil)
	_ api.RequestTrailerMap  = (*HeaderMap)(nil)
	_ api.ResponseHeaderMap  = (*HeaderMap)(nil)
	_ api.ResponseTrailerMap = (*HeaderMap)(nil)
)

// NewHeaderMap builds a header map from key/value pairs, kept in the given order.
func NewHeaderMap(pairs ...[2]string) *HeaderMap {
	h := &HeaderMap{}
	for _, p := range pairs {
		h.Add(p[0], p[1])
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

// Set replaces the first value of key in place and drops the others.
func (h *HeaderMap) Set(key, value string) {
	key = strings.ToLower(key)
	for i, e := range h.entries {
		if e.key == key {
			h.Del(key)
			h.entries = append(h.entries[:i], append([]entry{{key: key, value: value}}, h.entries[i:]...)...)
			return
		}
	}
	h.Add(key, value)
}

func (h *HeaderMap) Add(key, value string) {
	h.entries = append(h.entries, entry{key: strings.ToLower(key), value: value})
}

func (h *HeaderMap) Del(key string) {
	key = strings.ToLower(key)
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

// Pairs returns every entry in insertion order.
func (h *HeaderMap) Pairs() [][2]string {
	pairs := make([][2]string, 0, len(h.entries))
	for _, e := range h.entries {
		pairs = append(pairs, [2]string{e.key, e.value})
	}
	return pairs
}

// Len returns the number of entries, counting repeated keys.
func (h *HeaderMap) Len() int {
	return len(h.entries)
}

func (h *HeaderMap) pseudo(key string) string {
	v, _ := h.Get(key)
	return v
}

func (h *HeaderMap) Scheme() string { return h.pseudo(":scheme") }
func (h *HeaderMap) Method() string { return h.pseudo(":method") }
func (h *HeaderMap) Host() string   { return h.pseudo(":authority") }
func (h *HeaderMap) Path() string   { return h.pseudo(":path") }

// SetStatus sets the value returned by Status.
func (h *HeaderMap) SetStatus(code int) {
	h.status = code
}

func (h *HeaderMap) Status() (int, bool) {
	return h.status, h.status != 0
}

// Buffer is an api.BufferInstance backed by bytes.Buffer.
type Buffer struct {
	bytes.Buffer
}

var _ api.BufferInstance = (*Buffer)(nil)

// NewBuffer returns a buffer holding a copy of data.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{}
	b.Buffer.Write(data)
	return b
}

func (b *Buffer) Drain(offset int) {
	b.Buffer.Next(offset)
}

func (b *Buffer) Append(data []byte) error {
	_, err := b.Buffer.Write(data)
	return err
}

func (b *Buffer) AppendString(s string) error {
	_, err := b.Buffer.WriteString(s)
	return err
}

func (b *Buffer) Prepend(data []byte) error {
	rest := append([]byte(nil), b.Buffer.Bytes()...)
	b.Buffer.Reset()
	b.Buffer.Write(data)
	b.Buffer.Write(rest)
	return nil
}

func (b *Buffer) Set(data []byte) error {
	b.Buffer.Reset()
	_, err := b.Buffer.Write(data)
	return err
}

func (b *Buffer) SetString(s string) error {
	return b.Set([]byte(s))
}

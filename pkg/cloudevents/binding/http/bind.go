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

// Package http writes CloudEvents in the HTTP binary content mode: the event data is the
// body, datacontenttype is the content-type header and every other attribute is a ce-
// header.
package http

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/cloudevents/sdk-go/v2/types"
)

const (
	HeaderPrefix      = "ce-"
	ContentTypeHeader = "content-type"
)

var (
	ErrMissingDataContentType = errors.New("event has no datacontenttype")
	ErrInvalidEvent           = errors.New("invalid event")
)

// Request is an event in binary mode. Headers keep the order they are written in.
type Request struct {
	Headers [][2]string
	Body    []byte
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if h[0] == name {
			return h[1], true
		}
	}
	return "", false
}

type attribute struct {
	name string
	get  func(e *event.Event) string
}

var contextAttributes = []attribute{
	{"specversion", func(e *event.Event) string { return e.SpecVersion() }},
	{"id", func(e *event.Event) string { return e.ID() }},
	{"source", func(e *event.Event) string { return e.Source() }},
	{"type", func(e *event.Event) string { return e.Type() }},
	{"time", func(e *event.Event) string {
		if e.Time().IsZero() {
			return ""
		}
		return e.Time().UTC().Format(time.RFC3339Nano)
	}},
	{"dataschema", func(e *event.Event) string { return e.DataSchema() }},
	{"subject", func(e *event.Event) string { return e.Subject() }},
}

// Bind lays e out as a binary mode request. The content-type header comes first, followed by
// the context attributes that are set and then the extensions in name order.
func Bind(e *event.Event) (*Request, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	contentType := e.DataContentType()
	if contentType == "" {
		return nil, ErrMissingDataContentType
	}

	extensions := e.Extensions()
	req := &Request{
		Headers: make([][2]string, 0, 1+len(contextAttributes)+len(extensions)),
		Body:    e.Data(),
	}
	req.Headers = append(req.Headers, [2]string{ContentTypeHeader, contentType})

	for _, attr := range contextAttributes {
		if value := attr.get(e); value != "" {
			req.Headers = append(req.Headers, [2]string{HeaderPrefix + attr.name, value})
		}
	}

	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, err := types.Format(extensions[name])
		if err != nil {
			return nil, fmt.Errorf("%w: extension %s: %v", ErrInvalidEvent, name, err)
		}
		req.Headers = append(req.Headers, [2]string{HeaderPrefix + name, value})
	}
	return req, nil
}

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

package pubsub

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

// AttributePrefix marks message attributes that carry CloudEvent attributes.
const AttributePrefix = "ce-"

var (
	ErrMissingMessage   = errors.New("envelope has no message")
	ErrMissingAttribute = errors.New("missing required attribute")
	ErrInvalidAttribute = errors.New("invalid attribute")
	ErrInvalidData      = errors.New("message data is not base64")
)

type attribute struct {
	name string
	set  func(e *event.Event, value string) error
}

func setString(f func(*event.Event, string)) func(*event.Event, string) error {
	return func(e *event.Event, value string) error {
		f(e, value)
		return nil
	}
}

func setTime(e *event.Event, value string) error {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return err
	}
	e.SetTime(t)
	return nil
}

// specversion is not listed, it picks the event context and is handled first.
var contextAttributes = []attribute{
	{"id", setString((*event.Event).SetID)},
	{"source", setString((*event.Event).SetSource)},
	{"type", setString((*event.Event).SetType)},
	{"time", setTime},
	{"datacontenttype", setString((*event.Event).SetDataContentType)},
	{"dataschema", setString((*event.Event).SetDataSchema)},
	{"subject", setString((*event.Event).SetSubject)},
}

var requiredAttributes = []string{"id", "source", "specversion", "type"}

// Unbind converts the message carried by a push envelope to a CloudEvent. Attributes named
// ce-<attribute> fill the event context, a plain content-type attribute stands in for a
// missing ce-datacontenttype, other ce- attributes become extensions and the rest are
// dropped, as are extensions with names the event context rejects. The message data holds the
// payload in base64 and is decoded into the event data.
func Unbind(received *pubsubpb.ReceivedMessage) (*event.Event, error) {
	msg := received.GetMessage()
	if msg == nil {
		return nil, ErrMissingMessage
	}

	var contentType string
	hasContentType := false
	attrs := make(map[string]string, len(msg.GetAttributes()))
	for k, v := range msg.GetAttributes() {
		k = strings.ToLower(k)
		if name, ok := strings.CutPrefix(k, AttributePrefix); ok {
			attrs[name] = v
		} else if k == "content-type" {
			contentType, hasContentType = v, true
		}
	}
	if _, ok := attrs["datacontenttype"]; !ok && hasContentType {
		attrs["datacontenttype"] = contentType
	}

	for _, name := range requiredAttributes {
		if attrs[name] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAttribute, name)
		}
	}

	version := attrs["specversion"]
	if version != event.CloudEventsVersionV1 && version != event.CloudEventsVersionV03 {
		return nil, fmt.Errorf("%w: unsupported specversion %q", ErrInvalidAttribute, version)
	}
	e := event.New(version)
	delete(attrs, "specversion")

	for _, attr := range contextAttributes {
		value, ok := attrs[attr.name]
		if !ok {
			continue
		}
		if err := attr.set(&e, value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAttribute, attr.name, err)
		}
		delete(attrs, attr.name)
	}

	for name, value := range attrs {
		if err := e.Context.SetExtension(name, value); err != nil {
			api.LogDebugf("dropping attribute %s%s: %v", AttributePrefix, name, err)
		}
	}

	data, err := base64.StdEncoding.DecodeString(string(msg.GetData()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(data) > 0 {
		e.DataEncoded = data
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttribute, err)
	}
	return &e, nil
}

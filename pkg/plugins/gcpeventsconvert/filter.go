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

// Package gcpeventsconvert rewrites Pub/Sub push deliveries into CloudEvents requests in the
// HTTP binary content mode.
//
// A request whose content-type equals the configured value is held until its body is
// complete. The body is parsed as a push envelope, the message is converted to a CloudEvent
// and the event replaces the request headers and body. Any failure along the way is logged
// and the request continues as it was received.
package gcpeventsconvert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
	cehttp "github.com/envoyproxy/gcp-events-convert/pkg/cloudevents/binding/http"
	"github.com/envoyproxy/gcp-events-convert/pkg/cloudevents/binding/pubsub"
)

var (
	ErrBufferUnavailable = errors.New("request body unavailable")
	ErrEnvelopeParse     = errors.New("parse pubsub envelope")
	ErrUnbind            = errors.New("unbind cloudevent")
	ErrBind              = errors.New("bind cloudevent")
)

type filter struct {
	api.PassThroughStreamEncoderFilter

	callbacks        api.FilterCallbackHandler
	decoderCallbacks api.DecoderFilterCallbacks
	encoderCallbacks api.EncoderFilterCallbacks
	config           *config

	hasCloudEvent bool
	// only valid while the stream is alive
	requestHeaders api.RequestHeaderMap
}

func (f *filter) SetDecoderFilterCallbacks(callbacks api.DecoderFilterCallbacks) {
	f.decoderCallbacks = callbacks
}

func (f *filter) SetEncoderFilterCallbacks(callbacks api.EncoderFilterCallbacks) {
	f.encoderCallbacks = callbacks
}

func (f *filter) DecodeHeaders(header api.RequestHeaderMap, endStream bool) api.StatusType {
	if endStream {
		return api.HeaderContinue
	}
	if contentType, _ := header.Get("content-type"); contentType != f.config.contentType {
		return api.HeaderContinue
	}

	f.hasCloudEvent = true
	f.requestHeaders = header
	return api.HeaderStopIteration
}

func (f *filter) DecodeData(buffer api.BufferInstance, endStream bool) api.StatusType {
	if !f.hasCloudEvent {
		return api.DataContinue
	}
	if !endStream {
		return api.DataStopIterationAndBuffer
	}

	// one attempt per request
	f.hasCloudEvent = false
	if err := f.convert(); err != nil {
		f.config.metrics.recordFailure(err)
		api.LogWarnf("%s: stream %s: %v, forwarding request unchanged", Name, f.streamID(), err)
		return api.DataContinue
	}
	f.config.metrics.recordConverted()
	api.LogDebugf("%s: stream %s: converted pubsub message to cloudevent", Name, f.streamID())
	return api.DataContinue
}

func (f *filter) DecodeTrailers(trailers api.RequestTrailerMap) api.StatusType {
	return api.TrailerContinue
}

func (f *filter) OnDestroy(reason api.DestroyReason) {
	f.requestHeaders = nil
	f.hasCloudEvent = false
}

// convert leaves the request untouched unless every step up to the final rewrite succeeds.
func (f *filter) convert() error {
	if f.decoderCallbacks == nil {
		return fmt.Errorf("%w: no decoder callbacks", ErrBufferUnavailable)
	}
	buffered := f.decoderCallbacks.DecodingBuffer()
	if buffered == nil || buffered.Len() == 0 {
		return fmt.Errorf("%w: nothing buffered: %w", ErrBufferUnavailable, api.ErrValueNotFound)
	}

	received, err := pubsub.ParseReceivedMessage(buffered.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEnvelopeParse, err)
	}
	event, err := pubsub.Unbind(received)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnbind, err)
	}
	req, err := cehttp.Bind(event)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBind, err)
	}

	f.apply(req)
	return nil
}

func (f *filter) apply(req *cehttp.Request) {
	for _, h := range req.Headers {
		if strings.EqualFold(h[0], cehttp.ContentTypeHeader) {
			f.requestHeaders.Set(h[0], h[1])
		} else {
			f.requestHeaders.Add(h[0], h[1])
		}
	}

	f.decoderCallbacks.ModifyDecodingBuffer(func(buffer api.BufferInstance) {
		buffer.Drain(buffer.Len())
		if err := buffer.Append(req.Body); err != nil {
			api.LogErrorf("%s: stream %s: replace request body: %v", Name, f.streamID(), err)
		}
	})
}

func (f *filter) streamID() string {
	if f.callbacks == nil || f.callbacks.StreamInfo() == nil {
		return "-"
	}
	return f.callbacks.StreamInfo().StreamID()
}

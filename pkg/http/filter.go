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
	"runtime/debug"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

// api.FilterCallbackHandler
type httpRequest struct {
	info *streamInfo
}

func (r *httpRequest) StreamInfo() api.StreamInfo {
	return r.info
}

func (r *httpRequest) Log(level api.LogType, message string) {
	api.GetCommonCAPI().Log(level, message)
}

func (r *httpRequest) LogLevel() api.LogType {
	return api.GetLogLevel()
}

type streamInfo struct {
	id            string
	protocol      string
	remoteAddress string
}

func (s *streamInfo) StreamID() string {
	return s.id
}

func (s *streamInfo) Protocol() (string, bool) {
	return s.protocol, s.protocol != ""
}

func (s *streamInfo) DownstreamRemoteAddress() string {
	return s.remoteAddress
}

// filterSlot is one filter instance plus the iteration state the host keeps for it. It is
// also the filter's decoder and encoder callbacks.
type filterSlot struct {
	name   string
	filter api.StreamFilter

	sawHeaders  bool
	headersHeld bool
	buffering   bool
	buffer      *httpBuffer
}

func (s *filterSlot) DecodingBuffer() api.BufferInstance {
	if s.buffer == nil {
		return nil
	}
	return s.buffer
}

func (s *filterSlot) ModifyDecodingBuffer(f func(buffer api.BufferInstance)) {
	if s.buffer != nil {
		f(s.buffer)
	}
}

// Response data is never buffered.
func (s *filterSlot) EncodingBuffer() api.BufferInstance {
	return nil
}

func (s *filterSlot) ModifyEncodingBuffer(f func(buffer api.BufferInstance)) {
}

// Stream drives one request and its response through the filter chain. Methods must be
// called from one goroutine in delivery order: headers, data, trailers, then the response
// side, then Destroy.
//
// A filter that stops iteration holds back the request headers from the filters after it.
// While headers are held, or after DataStopIterationAndBuffer, every chunk is appended to
// that filter's decoding buffer before the filter sees it, so the buffer passed with
// endStream holds the whole body. DataContinue forwards the buffer downstream. There is no
// asynchronous continuation: a filter still stopping at end of stream is logged and the
// data is forwarded anyway.
type Stream struct {
	request   *httpRequest
	slots     []*filterSlot
	headers   *HeaderMap
	destroyed bool
}

func (s *Stream) ID() string {
	return s.request.info.id
}

// RequestHeaders returns the header map given to DecodeHeaders.
func (s *Stream) RequestHeaders() *HeaderMap {
	return s.headers
}

// HeadersHeld reports whether a filter is still holding the request headers.
func (s *Stream) HeadersHeld() bool {
	for _, slot := range s.slots {
		if slot.headersHeld {
			return true
		}
	}
	return false
}

func (s *Stream) call(slot *filterSlot, phase api.EnvoyRequestPhase, f func() api.StatusType) (status api.StatusType) {
	defer func() {
		if e := recover(); e != nil {
			api.LogErrorf("stream %s: plugin %s panic in %s: %v\n%s", s.ID(), slot.name, phase, e, debug.Stack())
			status = continueStatus(phase)
		}
	}()
	return f()
}

func continueStatus(phase api.EnvoyRequestPhase) api.StatusType {
	switch phase {
	case api.DecodeHeaderPhase, api.EncodeHeaderPhase:
		return api.HeaderContinue
	case api.DecodeDataPhase, api.EncodeDataPhase:
		return api.DataContinue
	}
	return api.TrailerContinue
}

// DecodeHeaders returns HeaderStopIteration when a filter holds the headers, they must not be
// forwarded until DecodeData reports DataContinue.
func (s *Stream) DecodeHeaders(headers *HeaderMap, endStream bool) api.StatusType {
	s.headers = headers
	return s.decodeHeaders(0, endStream)
}

func (s *Stream) decodeHeaders(from int, endStream bool) api.StatusType {
	for _, slot := range s.slots[from:] {
		slot.sawHeaders = true
		status := s.call(slot, api.DecodeHeaderPhase, func() api.StatusType {
			return slot.filter.DecodeHeaders(s.headers, endStream)
		})
		switch status {
		case api.HeaderContinue, api.HeaderContinueAndDontEndStream:
		case api.HeaderStopIteration, api.HeaderStopAllIterationAndBuffer, api.HeaderStopAllIterationAndWatermark:
			if endStream {
				api.LogErrorf("stream %s: plugin %s stopped a request without body, continuing", s.ID(), slot.name)
				continue
			}
			slot.headersHeld = true
			return api.HeaderStopIteration
		default:
			api.LogErrorf("stream %s: plugin %s returned %v from DecodeHeaders, continuing", s.ID(), slot.name, status)
		}
	}
	return api.HeaderContinue
}

// DecodeData runs one request body chunk through the chain. It returns the bytes that leave
// the chain with DataContinue, or nil and a stop status while a filter holds the data.
func (s *Stream) DecodeData(data []byte, endStream bool) ([]byte, api.StatusType) {
	for i, slot := range s.slots {
		if !slot.sawHeaders {
			// the filter holding the headers has just released them
			s.decodeHeaders(i, false)
		}

		var buffer *httpBuffer
		if slot.headersHeld || slot.buffering {
			if slot.buffer == nil {
				slot.buffer = &httpBuffer{}
			}
			_ = slot.buffer.Append(data)
			buffer = slot.buffer
		} else {
			buffer = newHttpBuffer(data)
		}

		status := s.call(slot, api.DecodeDataPhase, func() api.StatusType {
			return slot.filter.DecodeData(buffer, endStream)
		})
		switch status {
		case api.DataContinue:
		case api.DataStopIterationAndBuffer, api.DataStopIterationAndWatermark, api.DataStopIterationNoBuffer:
			if endStream {
				api.LogErrorf("stream %s: plugin %s stopped at end of stream, continuing", s.ID(), slot.name)
				break
			}
			if status == api.DataStopIterationNoBuffer {
				// the chunk is dropped
				if slot.buffer == buffer && buffer.Len() >= len(data) {
					buffer.data = buffer.data[:buffer.Len()-len(data)]
				}
				return nil, status
			}
			slot.buffer = buffer
			slot.buffering = true
			return nil, api.DataStopIterationAndBuffer
		default:
			api.LogErrorf("stream %s: plugin %s returned %v from DecodeData, continuing", s.ID(), slot.name, status)
		}

		data = buffer.Bytes()
		slot.buffer = nil
		slot.buffering = false
		slot.headersHeld = false
	}
	return data, api.DataContinue
}

// DecodeTrailers passes the request trailers to every filter. Stop statuses are logged and ignored.
func (s *Stream) DecodeTrailers(trailers *HeaderMap) api.StatusType {
	for _, slot := range s.slots {
		status := s.call(slot, api.DecodeTrailerPhase, func() api.StatusType {
			return slot.filter.DecodeTrailers(trailers)
		})
		s.trailersDone(slot, "DecodeTrailers", status)
	}
	return api.TrailerContinue
}

// trailersDone reports a status other than TrailerContinue. Trailers end the stream, so
// there is nothing to hold them for.
func (s *Stream) trailersDone(slot *filterSlot, method string, status api.StatusType) {
	switch status {
	case api.TrailerContinue:
	case api.TrailerStopIteration:
		api.LogDebugf("stream %s: plugin %s stopped in %s at end of stream, continuing", s.ID(), slot.name, method)
	default:
		api.LogErrorf("stream %s: plugin %s returned %v from %s, continuing", s.ID(), slot.name, status, method)
	}
}

// EncodeHeaders runs the response headers through the chain in reverse order.
func (s *Stream) EncodeHeaders(headers *HeaderMap, endStream bool) api.StatusType {
	for i := len(s.slots) - 1; i >= 0; i-- {
		slot := s.slots[i]
		status := s.call(slot, api.EncodeHeaderPhase, func() api.StatusType {
			return slot.filter.EncodeHeaders(headers, endStream)
		})
		if status != api.HeaderContinue {
			api.LogErrorf("stream %s: plugin %s returned %v from EncodeHeaders, continuing", s.ID(), slot.name, status)
		}
	}
	return api.HeaderContinue
}

// EncodeData runs one response body chunk through the chain in reverse order and returns the
// bytes to send.
func (s *Stream) EncodeData(data []byte, endStream bool) []byte {
	for i := len(s.slots) - 1; i >= 0; i-- {
		slot := s.slots[i]
		buffer := newHttpBuffer(data)
		status := s.call(slot, api.EncodeDataPhase, func() api.StatusType {
			return slot.filter.EncodeData(buffer, endStream)
		})
		if status != api.DataContinue {
			api.LogErrorf("stream %s: plugin %s returned %v from EncodeData, continuing", s.ID(), slot.name, status)
		}
		data = buffer.Bytes()
	}
	return data
}

// EncodeTrailers passes the response trailers to every filter in reverse order.
func (s *Stream) EncodeTrailers(trailers *HeaderMap) api.StatusType {
	for i := len(s.slots) - 1; i >= 0; i-- {
		slot := s.slots[i]
		status := s.call(slot, api.EncodeTrailerPhase, func() api.StatusType {
			return slot.filter.EncodeTrailers(trailers)
		})
		s.trailersDone(slot, "EncodeTrailers", status)
	}
	return api.TrailerContinue
}

// Destroy notifies every filter once, later calls do nothing.
func (s *Stream) Destroy(reason api.DestroyReason) {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, slot := range s.slots {
		func() {
			defer func() {
				if e := recover(); e != nil {
					api.LogErrorf("stream %s: plugin %s panic in OnDestroy: %v", s.ID(), slot.name, e)
				}
			}()
			slot.filter.OnDestroy(reason)
		}()
		slot.buffer = nil
	}
	s.headers = nil
}

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

//go:generate mockgen -source=callbacks.go -destination=mocks/mock_callbacks.go -package=mocks
package api

// DecoderFilterCallbacks gives a filter access to the request body buffered on its behalf by
// the host.
type DecoderFilterCallbacks interface {
	// DecodingBuffer returns the request data buffered for this filter so far, or nil if
	// nothing has been buffered. Only when the filter is called with endStream is the full
	// request body available here.
	DecodingBuffer() BufferInstance

	// ModifyDecodingBuffer runs f against the buffered request data. The host never calls f
	// when nothing is buffered.
	ModifyDecodingBuffer(f func(buffer BufferInstance))
}

// EncoderFilterCallbacks is the response side counterpart of DecoderFilterCallbacks.
type EncoderFilterCallbacks interface {
	EncodingBuffer() BufferInstance
	ModifyEncodingBuffer(f func(buffer BufferInstance))
}

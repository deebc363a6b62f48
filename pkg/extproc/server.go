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

// Package extproc serves a filter chain as an Envoy external processor, so the same plugins
// can run next to an unmodified Envoy.
package extproc

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	core "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extproc_cfg "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/ext_proc/v3"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
	"github.com/envoyproxy/gcp-events-convert/pkg/http"
)

var errNoRequestHeaders = errors.New("request headers must come first")

type Server struct {
	extproc.UnimplementedExternalProcessorServer

	chain  *http.FilterChain
	logger *zap.SugaredLogger
}

var _ extproc.ExternalProcessorServer = (*Server)(nil)

func NewServer(chain *http.FilterChain, logger *zap.SugaredLogger) *Server {
	return &Server{chain: chain, logger: logger}
}

// processState tracks one HTTP request across the messages of a Process stream.
type processState struct {
	stream *http.Stream
	// request header mutations already sent to Envoy
	sent int
}

// Process maps ext_proc messages onto a filter stream. When the request headers are held
// it asks Envoy to buffer the body, the headers changed by the filters are then returned
// with the body response.
func (s *Server) Process(srv extproc.ExternalProcessor_ProcessServer) error {
	state := &processState{}
	defer func() {
		if state.stream != nil {
			state.stream.Destroy(api.Normal)
		}
	}()

	for {
		req, err := srv.Recv()
		if err == io.EOF {
			s.logger.Debug("Stream closed by proxy")
			return nil
		}
		if err != nil {
			if status.Code(err) == codes.Canceled {
				return nil
			}
			s.logger.Errorf("Error receiving from stream: %s", err)
			return err
		}

		resp, err := s.handle(state, req)
		if err != nil {
			s.logger.Warnf("Closing stream: %v", err)
			return status.Error(codes.InvalidArgument, err.Error())
		}
		if err := srv.Send(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handle(state *processState, req *extproc.ProcessingRequest) (*extproc.ProcessingResponse, error) {
	if headers := req.GetRequestHeaders(); headers != nil {
		return s.requestHeaders(state, headers), nil
	}
	if state.stream == nil {
		return nil, errNoRequestHeaders
	}

	switch {
	case req.GetRequestBody() != nil:
		return s.requestBody(state, req.GetRequestBody()), nil
	case req.GetRequestTrailers() != nil:
		state.stream.DecodeTrailers(newHeaderMap(req.GetRequestTrailers().GetTrailers()))
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_RequestTrailers{
				RequestTrailers: &extproc.TrailersResponse{},
			},
		}, nil
	case req.GetResponseHeaders() != nil:
		headers := newHeaderMap(req.GetResponseHeaders().GetHeaders())
		state.stream.EncodeHeaders(headers, req.GetResponseHeaders().GetEndOfStream())
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseHeaders{
				ResponseHeaders: &extproc.HeadersResponse{
					Response: &extproc.CommonResponse{HeaderMutation: headerMutation(headers.Mutations())},
				},
			},
		}, nil
	case req.GetResponseBody() != nil:
		body := req.GetResponseBody()
		data := state.stream.EncodeData(body.GetBody(), body.GetEndOfStream())
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseBody{
				ResponseBody: &extproc.BodyResponse{
					Response: &extproc.CommonResponse{BodyMutation: bodyMutation(body.GetBody(), data)},
				},
			},
		}, nil
	case req.GetResponseTrailers() != nil:
		state.stream.EncodeTrailers(newHeaderMap(req.GetResponseTrailers().GetTrailers()))
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseTrailers{
				ResponseTrailers: &extproc.TrailersResponse{},
			},
		}, nil
	}
	return nil, errors.New("unrecognized processing request")
}

func (s *Server) requestHeaders(state *processState, msg *extproc.HttpHeaders) *extproc.ProcessingResponse {
	if state.stream != nil {
		state.stream.Destroy(api.Normal)
	}

	headers := newHeaderMap(msg.GetHeaders())
	requestID, _ := headers.Get("x-request-id")
	path, _, _ := strings.Cut(headers.Path(), "?")
	state.stream = s.chain.NewRouteStream(path, requestID, "", "")
	state.sent = 0

	held := state.stream.DecodeHeaders(headers, msg.GetEndOfStream()) == api.HeaderStopIteration
	resp := &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestHeaders{
			RequestHeaders: &extproc.HeadersResponse{
				Response: &extproc.CommonResponse{HeaderMutation: s.pendingHeaderMutation(state)},
			},
		},
	}
	if held {
		s.logger.Debugf("Stream %s: requesting buffered request body", state.stream.ID())
		resp.ModeOverride = &extproc_cfg.ProcessingMode{
			RequestBodyMode: extproc_cfg.ProcessingMode_BUFFERED,
		}
	}
	return resp
}

func (s *Server) requestBody(state *processState, msg *extproc.HttpBody) *extproc.ProcessingResponse {
	data, st := state.stream.DecodeData(msg.GetBody(), msg.GetEndOfStream())

	common := &extproc.CommonResponse{}
	if st != api.DataContinue {
		// held by a filter, Envoy must not forward this chunk
		common.BodyMutation = &extproc.BodyMutation{
			Mutation: &extproc.BodyMutation_ClearBody{ClearBody: true},
		}
	} else {
		common.BodyMutation = bodyMutation(msg.GetBody(), data)
		if common.BodyMutation != nil && msg.GetEndOfStream() {
			state.stream.RequestHeaders().Set("content-length", strconv.Itoa(len(data)))
		}
		common.HeaderMutation = s.pendingHeaderMutation(state)
	}

	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestBody{
			RequestBody: &extproc.BodyResponse{Response: common},
		},
	}
}

func (s *Server) pendingHeaderMutation(state *processState) *extproc.HeaderMutation {
	mutations := state.stream.RequestHeaders().Mutations()
	pending := mutations[state.sent:]
	state.sent = len(mutations)
	return headerMutation(pending)
}

func headerMutation(mutations []http.HeaderMutation) *extproc.HeaderMutation {
	if len(mutations) == 0 {
		return nil
	}
	m := &extproc.HeaderMutation{}
	for _, mut := range mutations {
		switch mut.Op {
		case http.HeaderSet, http.HeaderAdd:
			action := core.HeaderValueOption_OVERWRITE_IF_EXISTS_OR_ADD
			if mut.Op == http.HeaderAdd {
				action = core.HeaderValueOption_APPEND_IF_EXISTS_OR_ADD
			}
			m.SetHeaders = append(m.SetHeaders, &core.HeaderValueOption{
				Header: &core.HeaderValue{
					Key:      mut.Key,
					RawValue: []byte(mut.Value),
				},
				AppendAction: action,
			})
		case http.HeaderDel:
			m.RemoveHeaders = append(m.RemoveHeaders, mut.Key)
		}
	}
	return m
}

func bodyMutation(original, forwarded []byte) *extproc.BodyMutation {
	if bytes.Equal(original, forwarded) {
		return nil
	}
	return &extproc.BodyMutation{
		Mutation: &extproc.BodyMutation_Body{Body: forwarded},
	}
}

func newHeaderMap(headers *core.HeaderMap) *http.HeaderMap {
	pairs := make([][2]string, 0, len(headers.GetHeaders()))
	for _, h := range headers.GetHeaders() {
		pairs = append(pairs, [2]string{h.GetKey(), getHeaderValue(h)})
	}
	return http.NewHeaderMap(pairs)
}

func getHeaderValue(h *core.HeaderValue) string {
	// Support backward compatibility with old Envoy versions
	if h.GetRawValue() == nil {
		return h.GetValue()
	}
	return string(h.GetRawValue())
}

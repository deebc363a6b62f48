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

// Package pubsub reads Pub/Sub push deliveries and turns the message they carry into a
// CloudEvent.
package pubsub

import (
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMalformedEnvelope = errors.New("malformed pubsub envelope")

// Push deliveries repeat some message fields under their proto names next to the JSON
// names, which protojson rejects as duplicates.
var messageAliases = map[string]string{
	"message_id":   "messageId",
	"publish_time": "publishTime",
	"ordering_key": "orderingKey",
}

var envelopeOptions = protojson.UnmarshalOptions{DiscardUnknown: true}

// ParseReceivedMessage decodes a push envelope in proto3 JSON form. Fields the message type
// does not know about, such as the push subscription name, are ignored. The JSON form of the
// data field is decoded here, the payload encoding inside it is left to Unbind.
func ParseReceivedMessage(body []byte) (*pubsubpb.ReceivedMessage, error) {
	envelope := &structpb.Struct{}
	if err := protojson.Unmarshal(body, envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if msg := envelope.GetFields()["message"].GetStructValue(); msg != nil {
		for alias, name := range messageAliases {
			if _, ok := msg.Fields[name]; ok {
				delete(msg.Fields, alias)
			}
		}
	}

	normalized, err := protojson.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	received := &pubsubpb.ReceivedMessage{}
	if err := envelopeOptions.Unmarshal(normalized, received); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return received, nil
}

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
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyproxy/gcp-events-convert/pkg/api"
)

// FilterConfig selects a registered plugin by name and carries its raw configuration.
type FilterConfig struct {
	Name   string
	Config *anypb.Any
}

type filterConfig struct {
	name         string
	parsedConfig interface{}
	factory      api.StreamFilterFactory
}

// RouteConfig overrides plugin configuration for requests whose path starts with PathPrefix.
type RouteConfig struct {
	PathPrefix string
	Filters    []FilterConfig
}

type route struct {
	prefix string
	// one per chain position
	factories []api.StreamFilterFactory
}

// FilterChain is an ordered list of parsed filter configurations. Once routes are added it is
// safe for concurrent use, every stream gets its own filter instances.
type FilterChain struct {
	filters []*filterConfig
	// longest prefix first
	routes []*route
}

// NewFilterChain parses each configuration with its plugin's parser. Plugins that are not
// registered are replaced by a pass through filter.
func NewFilterChain(configs []FilterConfig, callbacks api.ConfigCallbackHandler) (*FilterChain, error) {
	chain := &FilterChain{filters: make([]*filterConfig, 0, len(configs))}
	for _, c := range configs {
		var parsed interface{} = c.Config
		if parser := getHttpFilterConfigParser(c.Name); parser != nil {
			conf, err := parser.Parse(c.Config, callbacks)
			if err != nil {
				return nil, fmt.Errorf("%w during parsing plugin %s", err, c.Name)
			}
			parsed = conf
		}
		chain.filters = append(chain.filters, &filterConfig{
			name:         c.Name,
			parsedConfig: parsed,
			factory:      getHttpFilterFactory(c.Name, parsed),
		})
	}
	return chain, nil
}

// Names returns the plugin names in chain order.
func (c *FilterChain) Names() []string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.name
	}
	return names
}

// AddRoute parses the route's plugin configs and merges each into the chain's config of the
// same plugin with the plugin parser's Merge. Only plugins already in the chain can be
// overridden. AddRoute must not be called while streams are created.
func (c *FilterChain) AddRoute(rc RouteConfig, callbacks api.ConfigCallbackHandler) error {
	r := &route{prefix: rc.PathPrefix, factories: make([]api.StreamFilterFactory, len(c.filters))}
	for i, f := range c.filters {
		r.factories[i] = f.factory
	}

	for _, fc := range rc.Filters {
		idx := c.index(fc.Name)
		if idx < 0 {
			return fmt.Errorf("route %s: plugin %s is not in the filter chain", rc.PathPrefix, fc.Name)
		}
		parser := getHttpFilterConfigParser(fc.Name)
		if parser == nil {
			return fmt.Errorf("route %s: plugin %s has no config parser", rc.PathPrefix, fc.Name)
		}
		child, err := parser.Parse(fc.Config, callbacks)
		if err != nil {
			return fmt.Errorf("%w during parsing plugin %s for route %s", err, fc.Name, rc.PathPrefix)
		}
		merged := parser.Merge(c.filters[idx].parsedConfig, child)
		r.factories[idx] = getHttpFilterFactory(fc.Name, merged)
	}

	c.routes = append(c.routes, r)
	sort.SliceStable(c.routes, func(i, j int) bool {
		return len(c.routes[i].prefix) > len(c.routes[j].prefix)
	})
	return nil
}

func (c *FilterChain) index(name string) int {
	for i, f := range c.filters {
		if f.name == name {
			return i
		}
	}
	return -1
}

// NewStream creates the filter instances for one request using the chain's own configs. An
// empty id is replaced by a random one.
func (c *FilterChain) NewStream(id, protocol, remoteAddress string) *Stream {
	return c.newStream(nil, id, protocol, remoteAddress)
}

// NewRouteStream is NewStream with the configs of the longest route prefix matching path.
func (c *FilterChain) NewRouteStream(path, id, protocol, remoteAddress string) *Stream {
	for _, r := range c.routes {
		if strings.HasPrefix(path, r.prefix) {
			return c.newStream(r.factories, id, protocol, remoteAddress)
		}
	}
	return c.NewStream(id, protocol, remoteAddress)
}

// newStream uses the chain's own factories when factories is nil.
func (c *FilterChain) newStream(factories []api.StreamFilterFactory, id, protocol, remoteAddress string) *Stream {
	if id == "" {
		id = uuid.NewString()
	}
	req := &httpRequest{
		info: &streamInfo{id: id, protocol: protocol, remoteAddress: remoteAddress},
	}
	s := &Stream{
		request: req,
		slots:   make([]*filterSlot, len(c.filters)),
	}
	for i, fc := range c.filters {
		slot := &filterSlot{name: fc.name}
		factory := fc.factory
		if factories != nil {
			factory = factories[i]
		}
		slot.filter = factory(req)
		slot.filter.SetDecoderFilterCallbacks(slot)
		slot.filter.SetEncoderFilterCallbacks(slot)
		s.slots[i] = slot
	}
	return s
}

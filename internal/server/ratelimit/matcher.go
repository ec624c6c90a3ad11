package ratelimit

import (
	"strings"
)

var unlimited = &EndpointConfig{}

// defaultGroup is the bucket shared by every request that falls through to the default limit
const defaultGroup = "*"

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Configs whose path ends in "/" match by prefix ("/plans/" matches "/plans/{id}/status").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		return unlimited
	}

	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	return nil
}

// resolve applies the allow and deny lists and picks the endpoint limit. A nil
// config with allowed=true means the request bypasses limiting.
func (c *Config) resolve(clientID, path, method string) (config *EndpointConfig, allowed bool) {
	if !c.Enabled || c.Whitelist[clientID] {
		return nil, true
	}
	if c.Blacklist[clientID] {
		return nil, false
	}

	config = MatchEndpoint(path, method, c.EndpointConfigs)
	if config == nil {
		config = &EndpointConfig{
			Limit:  c.DefaultLimit,
			Window: c.DefaultWindow,
			Burst:  c.DefaultLimit,
			Group:  defaultGroup,
		}
	}
	if config.Limit <= 0 {
		return nil, true
	}
	return config, true
}

// bucketKey keys by the matched config, not the request path, so varying a path
// parameter does not open new buckets.
func bucketKey(clientID string, config *EndpointConfig, method string) string {
	return clientID + ":" + config.bucketName() + ":" + method
}

package spec

import (
	"fmt"
	"sort"
	"strconv"
)

// Recognised site configuration keys. Endpoint-valued keys must parse as
// scheme://host:port; the database pair is split because the backend's
// site tooling takes host and port as separate arguments.
const (
	KeyCacheEndpoint    = "cache_endpoint"
	KeyQueueEndpoint    = "queue_endpoint"
	KeyRealtimeEndpoint = "realtime_endpoint"
	KeyDatabaseHost     = "database_host"
	KeyDatabasePort     = "database_port"
)

// endpointKeys are the config keys whose values must be full endpoints.
var endpointKeys = map[string]bool{
	KeyCacheEndpoint:    true,
	KeyQueueEndpoint:    true,
	KeyRealtimeEndpoint: true,
}

// Site is a named logical tenant on the stack. The name is immutable once
// the site is created; the configuration map may be freely rewritten.
type Site struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// Validate checks the site name and every configuration value. It runs
// before any network call so a half-formed desired state is rejected
// up front rather than partially applied.
func (s Site) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("site name is required")
	}
	for _, key := range SortedKeys(s.Config) {
		val := s.Config[key]
		switch {
		case endpointKeys[key]:
			if _, err := ParseEndpoint(val); err != nil {
				return fmt.Errorf("config %s: %w", key, err)
			}
		case key == KeyDatabaseHost:
			if val == "" {
				return fmt.Errorf("config %s: empty host", key)
			}
		case key == KeyDatabasePort:
			if p, err := strconv.Atoi(val); err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("config %s: invalid port %q", key, val)
			}
		default:
			return fmt.Errorf("config %s: unrecognised key", key)
		}
	}
	return nil
}

// SortedKeys returns the keys of a config map in sorted order, for
// deterministic command sequences and event output.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

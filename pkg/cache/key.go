package cache

import (
	"fmt"
	"sort"
	"strings"
)

// KeyPrefix namespaces every page cache key.
const KeyPrefix = "forge_miner:page"

// Key identifies one cached page.
type Key struct {
	// Resource is the resource kind (e.g. "repositories", "branches").
	Resource string

	// Params are the identifying request parameters, without the cursor.
	Params map[string]string

	// Cursor is the cursor the page was fetched from; empty for the first page.
	Cursor string
}

// String generates a deterministic cache key string.
// Format: forge_miner:page:resource:param1=val1:param2=val2:cursor=abc
//
// Example:
//
//	forge_miner:page:branches:owner=octo:repo=hello:cursor=start
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if r := strings.Trim(k.Resource, ":"); r != "" {
		parts = append(parts, r)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name, v := range k.Params {
			if v == "" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	cursor := k.Cursor
	if cursor == "" {
		cursor = "start"
	}
	parts = append(parts, "cursor="+cursor)

	return strings.Join(parts, ":")
}

// Pattern returns a SCAN pattern matching every page of k.Resource, or
// every cached page when Resource is empty. Params and Cursor are ignored.
func (k Key) Pattern() string {
	if r := strings.Trim(k.Resource, ":"); r != "" {
		return KeyPrefix + ":" + r + ":*"
	}
	return KeyPrefix + ":*"
}

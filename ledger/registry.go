package ledger

import (
	"context"
	"fmt"
	"sort"
)

// Factory creates a Store from a config map.
type Factory func(context.Context, map[string]interface{}) (Store, error)

var registry = make(map[string]Factory)

// Register makes a Factory available under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a ledger store of the type given by key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in ledger registry (have %v)", key, Keys())
	}
	return f(ctx, conf)
}

// Keys lists the registered ledger store types.
func Keys() []string {
	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

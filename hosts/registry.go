// Package hosts holds a registry of dh.HostStore implementations,
// each selectable by name from a config file.
package hosts

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobg/dh"
)

type Factory func(context.Context, map[string]interface{}) (dh.HostStore, error)

var registry = make(map[string]Factory)

func Register(key string, f Factory) {
	registry[key] = f
}

func Create(ctx context.Context, key string, conf map[string]interface{}) (dh.HostStore, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in hosts registry (have %v)", key, Keys())
	}
	return f(ctx, conf)
}

// Keys lists the registered host-store types.
func Keys() []string {
	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package store holds a registry of dh.Store implementations,
// each selectable by name from a config file.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

// Factory creates a dh.Store from a config map.
type Factory func(context.Context, map[string]interface{}) (dh.Store, error)

var registry = make(map[string]Factory)

// Register makes a Factory available under the given key.
// It is normally called from the init function of a store package.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a store of the type given by key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (dh.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in store registry (have %v)", key, Keys())
	}
	return f(ctx, conf)
}

// Keys lists the registered store types.
func Keys() []string {
	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Nested creates the store described by the "nested" parameter of conf.
// It is for stores that wrap other stores.
func Nested(ctx context.Context, conf map[string]interface{}) (dh.Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrap(err, "creating nested store")
}

// Package datasource implements the streaming and polling data-source
// pipeline: it turns the service's wire formats into data-store mutations,
// with reconnect/backoff for streaming and a simple ticker for polling.
package datasource

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/ldstoretypes"
)

// DataDestination is the subset of ldstoretypes.Store the pipeline writes
// to; any Store satisfies it.
type DataDestination interface {
	Init(allData map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor) error
	Upsert(kind ldstoretypes.DataKind, key string, item ldstoretypes.ItemDescriptor) error
}

type putData struct {
	Path string  `json:"path"`
	Data allData `json:"data"`
}

type allData struct {
	Flags    map[string]*ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]*ldmodel.Segment     `json:"segments"`
}

type patchData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// pollingData is the JSON document the polling endpoint returns.
type pollingData struct {
	Flags    map[string]*ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]*ldmodel.Segment     `json:"segments"`
}

type parsedPath struct {
	kind ldstoretypes.DataKind
	key  string
}

// parsePath maps a wire path to a (kind,key) pair. Any prefix other than
// "/flags/" or "/segments/" is ignored without error, per spec.
func parsePath(path string) (parsedPath, bool) {
	if strings.HasPrefix(path, "/segments/") {
		return parsedPath{kind: ldstoretypes.Segments, key: strings.TrimPrefix(path, "/segments/")}, true
	}
	if strings.HasPrefix(path, "/flags/") {
		return parsedPath{kind: ldstoretypes.Features, key: strings.TrimPrefix(path, "/flags/")}, true
	}
	return parsedPath{}, false
}

func allDataToStoreFormat(data allData) map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor {
	flags := make([]ldstoretypes.KeyedItemDescriptor, 0, len(data.Flags))
	for k, f := range data.Flags {
		if f == nil {
			continue
		}
		flags = append(flags, ldstoretypes.KeyedItemDescriptor{Key: k, Item: flagItem(f)})
	}
	segments := make([]ldstoretypes.KeyedItemDescriptor, 0, len(data.Segments))
	for k, s := range data.Segments {
		if s == nil {
			continue
		}
		segments = append(segments, ldstoretypes.KeyedItemDescriptor{Key: k, Item: segmentItem(s)})
	}
	return map[ldstoretypes.DataKind][]ldstoretypes.KeyedItemDescriptor{
		ldstoretypes.Features: flags,
		ldstoretypes.Segments: segments,
	}
}

func flagItem(f *ldmodel.FeatureFlag) ldstoretypes.ItemDescriptor {
	if f.Deleted {
		return ldstoretypes.Tombstone(f.Version)
	}
	return ldstoretypes.ItemDescriptor{Version: f.Version, Item: f}
}

func segmentItem(s *ldmodel.Segment) ldstoretypes.ItemDescriptor {
	if s.Deleted {
		return ldstoretypes.Tombstone(s.Version)
	}
	return ldstoretypes.ItemDescriptor{Version: s.Version, Item: s}
}

// applyPut validates and applies a full-dataset put payload, returning an
// error for any malformed top-level object (the caller treats that as a
// stream-reset condition).
func applyPut(dest DataDestination, raw []byte) error {
	var put putData
	if err := json.Unmarshal(raw, &put); err != nil {
		return fmt.Errorf("malformed put payload: %w", err)
	}
	return dest.Init(allDataToStoreFormat(put.Data))
}

// applyPatch validates and applies a single-item patch payload. Malformed
// items are logged and skipped by the caller, not treated as fatal.
func applyPatch(dest DataDestination, raw []byte) error {
	var patch patchData
	if err := json.Unmarshal(raw, &patch); err != nil {
		return fmt.Errorf("malformed patch payload: %w", err)
	}
	path, ok := parsePath(patch.Path)
	if !ok {
		return nil
	}
	switch path.kind {
	case ldstoretypes.Features:
		var f ldmodel.FeatureFlag
		if err := json.Unmarshal(patch.Data, &f); err != nil {
			return fmt.Errorf("malformed flag patch: %w", err)
		}
		return dest.Upsert(ldstoretypes.Features, path.key, flagItem(&f))
	case ldstoretypes.Segments:
		var s ldmodel.Segment
		if err := json.Unmarshal(patch.Data, &s); err != nil {
			return fmt.Errorf("malformed segment patch: %w", err)
		}
		return dest.Upsert(ldstoretypes.Segments, path.key, segmentItem(&s))
	}
	return nil
}

// applyDelete validates and applies a tombstone delete payload.
func applyDelete(dest DataDestination, raw []byte) error {
	var del deleteData
	if err := json.Unmarshal(raw, &del); err != nil {
		return fmt.Errorf("malformed delete payload: %w", err)
	}
	path, ok := parsePath(del.Path)
	if !ok {
		return nil
	}
	return dest.Upsert(path.kind, path.key, ldstoretypes.Tombstone(del.Version))
}

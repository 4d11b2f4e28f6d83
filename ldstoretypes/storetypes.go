// Package ldstoretypes defines the abstract data-store contract shared by
// the in-memory store, persistent-store backends, and the caching wrapper
// that sits in front of either.
package ldstoretypes

// DataKind names one of the store's two namespaces.
type DataKind string

// The store exposes exactly these two namespaces; anything else returned
// by a persistent backend is ignored.
const (
	Features DataKind = "features"
	Segments DataKind = "segments"
)

// DataKinds lists both namespaces.
var DataKinds = []DataKind{Features, Segments}

// ItemDescriptor is a version-stamped, possibly-deleted store entry. For a
// tombstone, Item is nil and Version holds the deletion version.
type ItemDescriptor struct {
	Version int
	Item    interface{}
}

// Tombstone constructs a deleted ItemDescriptor at the given version.
func Tombstone(version int) ItemDescriptor {
	return ItemDescriptor{Version: version}
}

// IsDeleted reports whether this descriptor represents a tombstone.
func (d ItemDescriptor) IsDeleted() bool {
	return d.Item == nil
}

// KeyedItemDescriptor pairs a key with its descriptor, used for All results
// and for full-dataset Init payloads.
type KeyedItemDescriptor struct {
	Key  string
	Item ItemDescriptor
}

// Store is the data-store contract used by the evaluator and the
// data-source pipeline. An in-memory store, a persistent-store-backed
// caching wrapper, or a test double can all satisfy it.
type Store interface {
	// Init atomically replaces the entire dataset.
	Init(allData map[DataKind][]KeyedItemDescriptor) error
	// Get returns the item for (kind,key). A tombstone and a genuinely
	// absent item both come back with a nil Item, so IsDeleted() reports
	// true for either; callers check that to treat the item as absent.
	Get(kind DataKind, key string) (ItemDescriptor, error)
	// All returns every non-deleted item in a namespace.
	All(kind DataKind) ([]KeyedItemDescriptor, error)
	// Upsert inserts or replaces an item, subject to the version gate.
	Upsert(kind DataKind, key string, item ItemDescriptor) error
	// Initialized reports whether Init has ever succeeded.
	Initialized() bool
	// Close releases any resources held by the store.
	Close() error
}

// SerializedItemDescriptor is the shape a persistent-store backend actually
// sees: an opaque byte buffer plus the version and deletion bit, so that
// serialization to/from the data model lives in the caching wrapper, not in
// backend implementations.
type SerializedItemDescriptor struct {
	Version    int
	Deleted    bool
	SerializedItem []byte
}

// PersistentDataStore is the backend ABI a durable store implementation
// (Redis, Consul, DynamoDB, ...) must satisfy. Only the interface is
// specified here; no concrete backend ships in this module.
type PersistentDataStore interface {
	Init(allData map[DataKind][]SerializedKeyedItemDescriptor) error
	Get(kind DataKind, key string) (SerializedItemDescriptor, error)
	GetAll(kind DataKind) ([]SerializedKeyedItemDescriptor, error)
	Upsert(kind DataKind, key string, item SerializedItemDescriptor) (bool, error)
	IsInitialized() bool
	Close() error
}

// SerializedKeyedItemDescriptor pairs a key with a serialized descriptor.
type SerializedKeyedItemDescriptor struct {
	Key  string
	Item SerializedItemDescriptor
}

// ItemSerializer converts between the data model and the opaque byte form
// a PersistentDataStore stores.
type ItemSerializer interface {
	Serialize(kind DataKind, item ItemDescriptor) []byte
	Deserialize(kind DataKind, data []byte) (ItemDescriptor, error)
}

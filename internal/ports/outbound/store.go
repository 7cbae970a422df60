package outbound

import "context"

// KeyValueStore defines the interface for the durable ordered store backing
// auction persistence. Implementations must provide read-after-write
// consistency for a single writer process and iterate keys in order.
type KeyValueStore interface {
	// Get retrieves the value stored for key, or shared.ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put upserts the value stored for key
	Put(ctx context.Context, key string, value []byte) error

	// PutIfAbsent stores the value only if the key does not exist yet,
	// otherwise returns shared.ErrKeyExists
	PutIfAbsent(ctx context.Context, key string, value []byte) error

	// Scan visits every key/value pair in key order until fn returns an error
	Scan(ctx context.Context, fn func(key string, value []byte) error) error

	// Close releases the underlying storage resources
	Close() error
}

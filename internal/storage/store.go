// Package storage persists the ledger as independently keyed JSON documents.
// Every backend saves a batch of documents atomically.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no document is stored under a key.
var ErrNotFound = errors.New("storage: document not found")

// Document is one keyed JSON payload.
type Document struct {
	Key  string
	Body []byte
}

// Store loads and saves documents.
type Store interface {
	// Load returns the body stored under key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save writes all docs or none of them.
	Save(ctx context.Context, docs ...Document) error
}

// DefaultKeyPrefix matches the key names used by the browser edition.
const DefaultKeyPrefix = "inv_"

// Keys names the four ledger documents.
type Keys struct {
	Clients  string
	Invoices string
	Payments string
	Products string
}

// NewKeys builds the document keys for prefix. An empty prefix falls back to
// DefaultKeyPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{
		Clients:  prefix + "clients",
		Invoices: prefix + "invoices",
		Payments: prefix + "payments",
		Products: prefix + "products",
	}
}

// All returns the keys in a stable order.
func (k Keys) All() []string {
	return []string{k.Clients, k.Invoices, k.Payments, k.Products}
}

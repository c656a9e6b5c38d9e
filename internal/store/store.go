// Package store persists small JSON documents in per-user namespaces.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: key not found")

// serviceNamespace is the namespace name used by ServiceNamespace.
const serviceNamespace = "_service"

// Namespace scopes keys to a single user. Data written in one namespace is
// never visible from another.
type Namespace struct {
	UserID string
}

// ServiceNamespace is shared by every caller and is not tied to a user.
var ServiceNamespace = Namespace{}

func UserNamespace(userID string) Namespace {
	return Namespace{UserID: userID}
}

func (n Namespace) String() string {
	if n.UserID == "" {
		return serviceNamespace
	}
	return n.UserID
}

// Store is a namespaced key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)
	Set(ctx context.Context, ns Namespace, key string, data []byte) error
	// Delete returns ErrNotFound when key is absent.
	Delete(ctx context.Context, ns Namespace, key string) error
	// List returns the values whose keys start with prefix, ordered by key.
	List(ctx context.Context, ns Namespace, prefix string) ([][]byte, error)
	Close() error
}

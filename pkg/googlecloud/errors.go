package googlecloud

import (
	"errors"

	"cloud.google.com/go/datastore"
)

var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidFilter = errors.New("invalid task filter")
)

// WrapDatastoreError maps datastore errors onto package errors.
func WrapDatastoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return ErrNotFound
	}
	return err
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, datastore.ErrNoSuchEntity)
}

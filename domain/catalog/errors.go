package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOutOfStock indicates the entity exists but has no stock left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrDuplicateEntry indicates the user already holds a cart entry for the product.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrPersistence indicates the store failed to read or write.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidInput indicates a request field failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidToken indicates an interaction token could not be decoded.
	ErrInvalidToken = errors.New("invalid token")
)

// IsDomainError reports whether err carries one of the business sentinels
// that callers surface verbatim, as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidToken)
}

// FromServiceError restores the sentinel carried by an error that crossed a
// request-reply boundary, where only the message text survives. A
// persistence failure wins over any sentinel text its cause may contain.
func FromServiceError(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) || IsDomainError(err) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, ErrPersistence.Error()):
		return fmt.Errorf("%w: %s", ErrPersistence, err.Error())
	case strings.Contains(msg, ErrDuplicateEntry.Error()):
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, err.Error())
	case strings.Contains(msg, ErrOutOfStock.Error()):
		return fmt.Errorf("%w: %s", ErrOutOfStock, err.Error())
	case strings.Contains(msg, ErrInvalidToken.Error()):
		return fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	case strings.Contains(msg, ErrInvalidInput.Error()):
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	case strings.Contains(msg, ErrNotFound.Error()):
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	}
	return err
}

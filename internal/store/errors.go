package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateSKU = errors.New("sku already exists")
	ErrConflict     = errors.New("lock conflict")
)

// Postgres error codes we translate
const (
	pqUniqueViolation      = "23505"
	pqInvalidTextRepr      = "22P02"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"

	skuConstraint       = "products_sku_key"
	oneActiveAlertIndex = "stock_alerts_one_active"
)

// classify maps driver errors onto the store sentinels, leaving others as-is
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case skuConstraint:
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, pqErr.Detail)
		case oneActiveAlertIndex:
			return fmt.Errorf("%w: concurrent alert open: %v", ErrConflict, err)
		}
	case pqInvalidTextRepr:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}

	return err
}

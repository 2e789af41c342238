package memdb

import "errors"

var (
	errNoTx = errors.New("advisory lock requires a transaction")

	// ErrUniqueViolation mirrors a Postgres unique index rejection.
	ErrUniqueViolation = errors.New("memdb: unique constraint violated")
	// ErrForeignKeyViolation mirrors a restrict-delete rejection.
	ErrForeignKeyViolation = errors.New("memdb: foreign key constraint violated")
)

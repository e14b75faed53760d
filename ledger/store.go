/*
store.go - Persistence port for ledger collections

PURPOSE:
  The ledger never talks to a database directly. It reads and writes whole
  collections of JSON records through the Store interface, the same shape as
  the browser key-value store the platform started on: one ordered list of
  records per logical collection key.

COLLECTIONS:
  volunteerCases      Case records
  userDonations       Donation records
  ngoSchemes          Scheme records
  voucherRedemptions  VoucherRedemption records
  issuedVouchers      Voucher records
  user                At most one Session record

ATOMICITY:
  Every ledger mutation is a read-modify-write over one or more collections.
  TxStore.WithTx runs the whole cycle as one unit: all Puts inside fn commit
  together or not at all, and no other WithTx interleaves with it.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite for the server

SEE ALSO:
  - records.go: Typed decode/validate over raw records
*/
package ledger

import (
	"context"
	"encoding/json"
)

// Collection is a logical collection key.
type Collection string

const (
	CollectionCases       Collection = "volunteerCases"
	CollectionDonations   Collection = "userDonations"
	CollectionSchemes     Collection = "ngoSchemes"
	CollectionRedemptions Collection = "voucherRedemptions"
	CollectionVouchers    Collection = "issuedVouchers"
	CollectionSession     Collection = "user"
)

// Collections lists every key the ledger owns.
var Collections = []Collection{
	CollectionCases,
	CollectionDonations,
	CollectionSchemes,
	CollectionRedemptions,
	CollectionVouchers,
	CollectionSession,
}

// Store persists ordered lists of JSON records per collection.
// Get on an unknown collection returns an empty list, not an error.
type Store interface {
	Get(ctx context.Context, c Collection) ([]json.RawMessage, error)

	// Put replaces the whole collection, preserving the given order.
	Put(ctx context.Context, c Collection, records []json.RawMessage) error
}

// TxStore wraps Store with transaction support.
// If fn returns an error, every Put made through the Store it was handed is
// rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
)

type validatable interface {
	Validate() error
}

// load decodes and validates every record in a collection.
// One bad record fails the whole load; nothing is silently coerced.
func load[T validatable](ctx context.Context, s Store, c Collection) ([]T, error) {
	raws, err := s.Get(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c, err)
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &MalformedRecordError{Collection: c, Index: i, Err: err}
		}
		if err := v.Validate(); err != nil {
			return nil, &MalformedRecordError{Collection: c, Index: i, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

func save[T any](ctx context.Context, s Store, c Collection, records []T) error {
	raws := make([]json.RawMessage, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s[%d]: %w", c, i, err)
		}
		raws[i] = data
	}
	if err := s.Put(ctx, c, raws); err != nil {
		return fmt.Errorf("failed to save %s: %w", c, err)
	}
	return nil
}

func loadCases(ctx context.Context, s Store) ([]Case, error) {
	return load[Case](ctx, s, CollectionCases)
}

func loadDonations(ctx context.Context, s Store) ([]Donation, error) {
	return load[Donation](ctx, s, CollectionDonations)
}

func loadVouchers(ctx context.Context, s Store) ([]Voucher, error) {
	return load[Voucher](ctx, s, CollectionVouchers)
}

func loadRedemptions(ctx context.Context, s Store) ([]VoucherRedemption, error) {
	return load[VoucherRedemption](ctx, s, CollectionRedemptions)
}

func loadSchemes(ctx context.Context, s Store) ([]Scheme, error) {
	return load[Scheme](ctx, s, CollectionSchemes)
}

func findCase(cases []Case, id string) int {
	for i := range cases {
		if cases[i].ID == id {
			return i
		}
	}
	return -1
}

package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Code prefixes for gapless business codes.
const (
	PurchaseOrderPrefix = "CMD"
	WorkOrderPrefix     = "TRV"
)

// nextCodeTx returns the next gapless code for prefix, e.g. CMD-0001, inside the
// caller's transaction. The sequence row is incremented with an upsert so concurrent
// creators serialise on it and a rolled-back transaction releases its number.
func nextCodeTx(ctx context.Context, tx pgx.Tx, prefix string) (string, error) {
	var last int64
	err := tx.QueryRow(ctx, `
		INSERT INTO code_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = code_sequences.last_number + 1
		RETURNING last_number`,
		prefix,
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s sequence number: %w", prefix, err)
	}
	return formatCode(prefix, last), nil
}

func formatCode(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

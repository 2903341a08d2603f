package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// classify maps driver errors onto the catalog error kinds. Server errors
// other than authorization failures are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 28 is invalid authorization; 42501 is insufficient_privilege.
		if strings.HasPrefix(pgErr.Code, "28") || pgErr.Code == "42501" {
			return fmt.Errorf("%w: %w", domain.ErrAuth, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
}

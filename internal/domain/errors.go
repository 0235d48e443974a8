package domain

import "github.com/ledgerforge/ledgerd/internal/apperr"

// Structural invariant violations detected at entity construction time
// (spec.md I1-I4). These are always apperr.KindValidation.

func errValidation(msg string) error {
	return apperr.Validation(msg)
}

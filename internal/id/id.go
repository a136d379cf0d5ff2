// Package id validates the identifiers that cross the command surface:
// base58 account addresses, stream/stake ids, and decimal amounts.
package id

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	clierr "github.com/solterm/solterm/internal/errors"
)

// ParseAddress validates a base58-encoded account address and returns its
// canonical form.
func ParseAddress(raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(raw))
	if err != nil {
		return solana.PublicKey{}, clierr.Newf(clierr.CodeInvalidAddress, "invalid address: %s", raw)
	}
	return key, nil
}

// IsAddress reports whether raw is a well-formed base58 account address.
func IsAddress(raw string) bool {
	_, err := ParseAddress(raw)
	return err == nil
}

// NewID allocates an opaque identifier for streams and stakes. Lookup of an
// id that was never issued is a NotFound at the service layer, not a format
// error here.
func NewID() string {
	return uuid.NewString()
}

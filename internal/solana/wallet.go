package solana

import (
	"github.com/gagliardetto/solana-go"

	clierr "github.com/solterm/solterm/internal/errors"
)

// Wallet is the signing collaborator: a public key plus the ability to sign
// transactions. The terminal never sees private key material directly.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// KeypairWallet signs with a local keypair file in the standard CLI format.
type KeypairWallet struct {
	key solana.PrivateKey
}

func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "load keypair file", err)
	}
	return &KeypairWallet{key: key}, nil
}

func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *KeypairWallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return clierr.Wrap(clierr.CodeTransaction, "sign transaction", err)
	}
	return nil
}

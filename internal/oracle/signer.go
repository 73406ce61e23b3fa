package oracle

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs resolver transactions.
type Signer interface {
	From() common.Address
	SignTx(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// LocalSigner signs with a local secp256k1 private key.
type LocalSigner struct {
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
}

func NewLocalSigner(chainID *big.Int, key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		chainID: new(big.Int).Set(chainID),
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

// SignerFromHex parses a 0x-optional hex private key.
func SignerFromHex(chainID *big.Int, keyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid ORACLE_PRIVATE_KEY")
	}
	return NewLocalSigner(chainID, key), nil
}

func (s *LocalSigner) From() common.Address { return s.from }

func (s *LocalSigner) SignTx(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}

package farcaster

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain of the Farcaster SignedKeyRequestValidator contract on Optimism.
// These values are fixed by the protocol; a signature under any other domain
// is rejected on-chain.
var signedKeyRequestDomain = apitypes.TypedDataDomain{
	Name:              "Farcaster SignedKeyRequestValidator",
	Version:           "1",
	ChainId:           math.NewHexOrDecimal256(10),
	VerifyingContract: "0x00000000FC700472606ED4fA22623Acf62c60553",
}

var signedKeyRequestTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SignedKeyRequest": {
		{Name: "requestFid", Type: "uint256"},
		{Name: "key", Type: "bytes"},
		{Name: "deadline", Type: "uint256"},
	},
}

func signedKeyRequestTypedData(requestFID uint64, keyBytes []byte, deadline time.Time) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       signedKeyRequestTypes,
		PrimaryType: "SignedKeyRequest",
		Domain:      signedKeyRequestDomain,
		Message: apitypes.TypedDataMessage{
			"requestFid": (*math.HexOrDecimal256)(new(big.Int).SetUint64(requestFID)),
			"key":        keyBytes,
			"deadline":   (*math.HexOrDecimal256)(big.NewInt(deadline.Unix())),
		},
	}
}

// AppSigner signs delegated-key authorizations with the app's custodial key.
// The signature says: the owner of requestFid approves this ed25519 public
// key as a delegated signer until deadline.
type AppSigner struct {
	key *ecdsa.PrivateKey
}

func NewAppSigner(mnemonic string) (*AppSigner, error) {
	key, err := keyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	return &AppSigner{key: key}, nil
}

// Address returns the custodial account's address, useful for verifying the
// configured mnemonic actually controls the app FID.
func (s *AppSigner) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

// SignKeyRequest produces the hex-encoded EIP-712 signature over
// {requestFid, key, deadline}. publicKey is the 0x-prefixed delegated key.
func (s *AppSigner) SignKeyRequest(requestFID uint64, publicKey string, deadline time.Time) (string, error) {
	keyBytes, err := hexutil.Decode(publicKey)
	if err != nil {
		return "", fmt.Errorf("delegated public key is not valid hex, %w", err)
	}

	digest, _, err := apitypes.TypedDataAndHash(signedKeyRequestTypedData(requestFID, keyBytes, deadline))
	if err != nil {
		return "", fmt.Errorf("failed to hash typed data, %w", err)
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign key request, %w", err)
	}

	// Ethereum expects the recovery byte as 27/28
	sig[64] += 27

	return hexutil.Encode(sig), nil
}

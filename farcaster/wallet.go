// Package farcaster holds the HTTP clients and signing code for the Farcaster
// collaborators: the SIWF verifier, the hosted sign-in relay and the delegated
// signer provider.
package farcaster

import (
	"crypto/ecdsa"
	"fmt"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// standard first external account of an Ethereum HD wallet
const derivationPath = "m/44'/60'/0'/0/0"

// keyFromMnemonic derives the app's custodial signing key from its configured
// seed phrase. The account behind this key owns the app FID on-chain.
func keyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet from mnemonic, %w", err)
	}

	account, err := wallet.Derive(hdwallet.MustParseDerivationPath(derivationPath), false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account, %w", err)
	}

	key, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("failed to export private key, %w", err)
	}

	return key, nil
}

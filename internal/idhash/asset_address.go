package idhash

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// assetAddressMarker namespaces asset address derivation so the digests can
// never collide with block content hashes over the same token id.
const assetAddressMarker = "QuantumAssetAddress"

// DeriveAssetAddress derives the deterministic base58 asset address for a
// token identifier.
//
// Derivation mirrors program-derived addresses: hash the seeds with a bump
// byte counting down from 255 and take the first digest that is NOT a valid
// ed25519 curve point, so a derived address can never be mistaken for a real
// public key. Returns "" only in the astronomically unlikely case that every
// bump lands on the curve.
func DeriveAssetAddress(tokenID string) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, len(tokenID)+len(assetAddressMarker)+1)
		data = append(data, []byte(tokenID)...)
		data = append(data, bump)
		data = append(data, []byte(assetAddressMarker)...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

// ValidOwnerAddress reports whether addr is a plausible owner public key:
// base58 text decoding to 32 bytes that form a valid ed25519 curve point.
func ValidOwnerAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	return isOnCurve(raw)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

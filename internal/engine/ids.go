package engine

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ammEngine/internal/curve"
)

// NormalizeAccount returns the checksummed form of hex addresses and the
// trimmed input otherwise.
func NormalizeAccount(account string) string {
	account = strings.TrimSpace(account)
	if common.IsHexAddress(account) {
		return common.HexToAddress(account).Hex()
	}
	return account
}

// PoolID derives the pool identity from its mints and curve. The same inputs
// always give the same ID, so a second initialization is detectable.
func PoolID(mintX, mintY string, curveType curve.Type) string {
	return crypto.Keccak256Hash(
		[]byte("pool"),
		[]byte(NormalizeAccount(mintX)),
		[]byte{0},
		[]byte(NormalizeAccount(mintY)),
		[]byte{byte(curveType)},
	).Hex()
}

// AuthorityOf derives the account that owns a pool's vaults.
func AuthorityOf(poolID string) string {
	return deriveAddress("authority", poolID)
}

// LPMintOf derives the mint of a pool's LP token.
func LPMintOf(poolID string) string {
	return deriveAddress("lp-mint", poolID)
}

func deriveAddress(seed, poolID string) string {
	return common.BytesToAddress(crypto.Keccak256([]byte(seed), common.FromHex(poolID))).Hex()
}

package rpc

import (
	"errors"

	"ghostchain/auth"
	"ghostchain/core"
	"ghostchain/pool"
)

// Stable numeric error codes the RPC layer maps every core/auth/pool error
// kind onto, per §7's "RPC layer maps each kind to a stable numeric code
// and short message" propagation policy. Codes are grouped by taxonomy
// band (validation/authority/resource/state/fatal) so a client can branch
// on the band without enumerating every kind.
const (
	CodeInternal = 1000

	// Validation errors: 1100-1199.
	CodeInsufficientBalance = 1101
	CodeNonceMismatch       = 1102
	CodeUnsupportedTLD      = 1103
	CodeDomainAlreadyExists = 1104
	CodeInvalidDomainName   = 1105
	CodeNonTransferable     = 1106
	CodeSupplyExceeded      = 1107
	CodeInvalidAmount       = 1108
	CodeNotStakeable        = 1109
	CodeInvalidCode         = 1110
	CodeInvalidSignature    = 1111

	// Authority errors: 1200-1299.
	CodeUnauthorizedMint       = 1201
	CodeNotContractOwner       = 1202
	CodeInsufficientPermission = 1203
	CodeNotDomainOwner         = 1204

	// Resource errors: 1300-1399.
	CodeOutOfGas      = 1301
	CodePoolExhausted = 1302
	CodeTimeout       = 1303
	CodeCacheMiss      = 1304
	CodeRateLimited    = 1305

	// State errors (absence, not exceptional): 1400-1499.
	CodeBlockNotFound     = 1401
	CodeAccountNotFound   = 1402
	CodeContractNotFound  = 1403
	CodeDomainNotFound    = 1404
	CodeTxNotFound        = 1405
	CodeValidatorNotFound = 1406

	// Fatal errors: 1500-1599.
	CodeStateRootMismatch = 1501
	CodeStoreCorrupted    = 1502

	// RPC-layer errors: 1600-1699.
	CodeParseError      = 1601
	CodeMethodNotFound  = 1602
	CodeUnauthorized    = 1603
)

var errorCodeTable = []struct {
	err  error
	code int
}{
	{core.ErrInsufficientBalance, CodeInsufficientBalance},
	{core.ErrNonceMismatch, CodeNonceMismatch},
	{core.ErrUnsupportedTLD, CodeUnsupportedTLD},
	{core.ErrDomainAlreadyExists, CodeDomainAlreadyExists},
	{core.ErrInvalidDomainName, CodeInvalidDomainName},
	{core.ErrNonTransferable, CodeNonTransferable},
	{core.ErrSupplyExceeded, CodeSupplyExceeded},
	{core.ErrInvalidAmount, CodeInvalidAmount},
	{core.ErrNotStakeable, CodeNotStakeable},
	{core.ErrInvalidCode, CodeInvalidCode},
	{core.ErrInvalidSignature, CodeInvalidSignature},
	{core.ErrUnauthorizedMint, CodeUnauthorizedMint},
	{core.ErrNotContractOwner, CodeNotContractOwner},
	{core.ErrInsufficientPermission, CodeInsufficientPermission},
	{core.ErrNotDomainOwner, CodeNotDomainOwner},
	{core.ErrOutOfGas, CodeOutOfGas},
	{core.ErrPoolExhausted, CodePoolExhausted},
	{core.ErrTimeout, CodeTimeout},
	{core.ErrCacheMiss, CodeCacheMiss},
	{core.ErrBlockNotFound, CodeBlockNotFound},
	{core.ErrAccountNotFound, CodeAccountNotFound},
	{core.ErrContractNotFound, CodeContractNotFound},
	{core.ErrDomainNotFound, CodeDomainNotFound},
	{core.ErrTxNotFound, CodeTxNotFound},
	{core.ErrValidatorNotFound, CodeValidatorNotFound},
	{core.ErrStateRootMismatch, CodeStateRootMismatch},
	{core.ErrStoreCorrupted, CodeStoreCorrupted},
	{pool.ErrPoolExhausted, CodePoolExhausted},
	{auth.ErrUnauthorized, CodeUnauthorized},
	{auth.ErrRateLimited, CodeRateLimited},
}

// codeForError maps err onto its stable RPC code via errors.Is, falling
// back to CodeInternal for anything outside the published taxonomy.
func codeForError(err error) int {
	for _, e := range errorCodeTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

func newWireError(err error) *wireError {
	return &wireError{Code: codeForError(err), Message: err.Error()}
}

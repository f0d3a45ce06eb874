package core

import "errors"

// Validation errors: surfaced to the caller, never retried by the core.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonceMismatch       = errors.New("nonce mismatch")
	ErrUnsupportedTLD      = errors.New("unsupported tld")
	ErrDomainAlreadyExists = errors.New("domain already exists")
	ErrInvalidDomainName   = errors.New("invalid domain name")
	ErrNonTransferable     = errors.New("token kind is non-transferable")
	ErrSupplyExceeded      = errors.New("mint would exceed max supply")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotStakeable        = errors.New("token kind is not stakeable")
	ErrInvalidCode         = errors.New("invalid contract code")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
)

// Authority errors: surfaced and audit-logged.
var (
	ErrUnauthorizedMint     = errors.New("caller lacks mint authority")
	ErrNotContractOwner     = errors.New("caller is not the contract owner")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrNotDomainOwner       = errors.New("caller is not the domain owner")
)

// Resource errors. OutOfGas reverts state and surfaces; PoolExhausted is
// retriable by the caller after back-off; Timeout propagates cancellation.
var (
	ErrOutOfGas       = errors.New("out of gas")
	ErrPoolExhausted  = errors.New("connection pool exhausted")
	ErrTimeout        = errors.New("operation timed out")
	ErrCacheMiss      = errors.New("cache miss")
)

// State errors: absence is not exceptional, so callers should generally
// prefer errors.Is against these rather than treating them as failures.
var (
	ErrBlockNotFound    = errors.New("block not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrContractNotFound = errors.New("contract not found")
	ErrDomainNotFound   = errors.New("domain not found")
	ErrTxNotFound       = errors.New("transaction not found")
	ErrValidatorNotFound = errors.New("validator not found")
)

// Fatal errors: abort block application; operator intervention required.
var (
	ErrStateRootMismatch = errors.New("state root mismatch")
	ErrStoreCorrupted    = errors.New("persistent store corrupted")
)

// ContractPaused indicates a call was rejected because the contract is
// currently paused by its owner.
var ErrContractPaused = errors.New("contract is paused")

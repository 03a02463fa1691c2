package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when required credentials or settings are missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrAccountResolution is returned when a backend cannot produce a signing account.
	ErrAccountResolution = errors.New("account resolution error")

	// ErrWalletServiceUnavailable is returned when the HD wallet service cannot be reached
	// or answers with a non-200 status.
	ErrWalletServiceUnavailable = fmt.Errorf("%w: wallet service unavailable", ErrAccountResolution)

	// ErrNoAccountsAvailable is returned when a backend lists no accounts.
	ErrNoAccountsAvailable = fmt.Errorf("%w: no accounts available", ErrAccountResolution)

	// ErrKeystoreCorrupt is returned when the local keystore file exists but cannot be decrypted.
	ErrKeystoreCorrupt = fmt.Errorf("%w: keystore corrupt", ErrAccountResolution)

	// ErrEstimationFailure marks a failed gas estimation. It never escapes the gas estimator.
	ErrEstimationFailure = errors.New("gas estimation failure")

	// ErrSigningService is returned when a signing backend rejects or cannot complete a signature.
	ErrSigningService = errors.New("signing service error")

	// ErrRecoveryIdNotFound is returned when none of the candidate recovery ids recovers the
	// expected signer address.
	ErrRecoveryIdNotFound = errors.New("recovery id not found")

	// ErrSubmission is returned when the network rejects a signed transaction.
	ErrSubmission = errors.New("submission error")

	// ErrTransactionFailed is returned when a mined transaction has a failure status.
	ErrTransactionFailed = fmt.Errorf("%w: transaction failed", ErrSubmission)

	// ErrPrivateTransactionUnsupported is returned when a private transaction is requested
	// through a backend without privacy support.
	ErrPrivateTransactionUnsupported = errors.New("private transactions are not supported by this signer")

	// ErrInvalidValue is returned when a transaction transfers value; this domain never does.
	ErrInvalidValue = errors.New("transaction value must be zero")

	// ErrInvalidGasPrice is returned for a non-zero gas price on a permissioned network.
	ErrInvalidGasPrice = errors.New("transaction gas price must be zero")

	// ErrConflictingPrivacyFields is returned when both privateFor and privacyGroupId are set.
	ErrConflictingPrivacyFields = errors.New("privateFor and privacyGroupId are mutually exclusive")
)

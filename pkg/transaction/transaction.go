// Package transaction defines the data model shared by every stage of the signing pipeline:
// the resolved account, the unsigned and signed transaction, the signature and the receipt.
package transaction

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeyMaterial describes what the core holds for an account.
type KeyMaterial int

const (
	// KeyMaterialNone means the key never leaves the node that manages it.
	KeyMaterialNone KeyMaterial = iota
	// KeyMaterialPrivateKey means a plaintext private key is held in memory.
	KeyMaterialPrivateKey
	// KeyMaterialHandle means the key lives in a remote service addressed by a handle.
	KeyMaterialHandle
)

func (k KeyMaterial) String() string {
	switch k {
	case KeyMaterialPrivateKey:
		return "privateKey"
	case KeyMaterialHandle:
		return "keyHandle"
	default:
		return "none"
	}
}

// Account is the signing identity produced by an account resolver.
type Account struct {
	Address common.Address

	// PrivateKey is set only when KeyMaterial is KeyMaterialPrivateKey.
	PrivateKey *ecdsa.PrivateKey
	// KeyHandle names the remote key when KeyMaterial is KeyMaterialHandle.
	KeyHandle string
}

// KeyMaterial reports which kind of key material the account carries.
func (a *Account) KeyMaterial() KeyMaterial {
	switch {
	case a.PrivateKey != nil:
		return KeyMaterialPrivateKey
	case a.KeyHandle != "":
		return KeyMaterialHandle
	default:
		return KeyMaterialNone
	}
}

// PrivacyFields carries the addressing of a private transaction. Exactly one variant is
// populated: PrivateFrom with PrivateFor, or PrivacyGroupId.
type PrivacyFields struct {
	PrivateFrom    string
	PrivateFor     []string
	PrivacyGroupId string
}

// Validate checks that only one addressing variant is set.
func (p *PrivacyFields) Validate() error {
	if p == nil {
		return nil
	}
	if len(p.PrivateFor) > 0 && p.PrivacyGroupId != "" {
		return ErrConflictingPrivacyFields
	}
	return nil
}

// UsesGroup reports whether the transaction is addressed to a privacy group.
func (p *PrivacyFields) UsesGroup() bool {
	return p != nil && p.PrivacyGroupId != ""
}

// UnsignedTransaction holds the fields assembled by the builder. To is nil only for
// contract creation.
type UnsignedTransaction struct {
	From     common.Address
	Nonce    uint64
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	ChainID  *big.Int
	Privacy  *PrivacyFields
}

// IsContractCreation reports whether the transaction deploys a contract.
func (u *UnsignedTransaction) IsContractCreation() bool {
	return u.To == nil
}

// IsPrivate reports whether the transaction carries privacy fields.
func (u *UnsignedTransaction) IsPrivate() bool {
	return u.Privacy != nil
}

// Validate enforces the builder invariants: exclusive privacy variants, zero value and
// zero gas price.
func (u *UnsignedTransaction) Validate() error {
	if err := u.Privacy.Validate(); err != nil {
		return err
	}
	if u.Value != nil && u.Value.Sign() != 0 {
		return ErrInvalidValue
	}
	if u.GasPrice != nil && u.GasPrice.Sign() != 0 {
		return ErrInvalidGasPrice
	}
	return nil
}

// ToLegacyTx converts the unsigned fields into a go-ethereum legacy transaction body.
func (u *UnsignedTransaction) ToLegacyTx() *types.LegacyTx {
	return &types.LegacyTx{
		Nonce:    u.Nonce,
		GasPrice: bigOrZero(u.GasPrice),
		Gas:      u.GasLimit,
		To:       u.To,
		Value:    bigOrZero(u.Value),
		Data:     u.Data,
	}
}

// EthSigner returns the go-ethereum signer matching the replay protection rule: EIP-155 when
// a chain id is configured, Homestead otherwise.
func (u *UnsignedTransaction) EthSigner() types.Signer {
	if u.ChainID != nil && u.ChainID.Sign() > 0 {
		return types.NewEIP155Signer(u.ChainID)
	}
	return types.HomesteadSigner{}
}

// SigningHash returns the hash the signature is computed over.
func (u *UnsignedTransaction) SigningHash() common.Hash {
	return u.EthSigner().Hash(types.NewTx(u.ToLegacyTx()))
}

// Signature is an ECDSA signature over a transaction hash. RecoveryId is nil until it has
// been computed or resolved.
type Signature struct {
	R          [32]byte
	S          [32]byte
	RecoveryId *uint8
}

// V returns the encoded recovery value for the given chain id, or nil when the recovery
// id is still unknown.
func (s *Signature) V(chainID *big.Int) *big.Int {
	if s.RecoveryId == nil {
		return nil
	}
	return EncodeV(*s.RecoveryId, chainID)
}

// EncodeV applies the replay protection rule to a recovery id: v = id + 27, plus
// chainId*2 + 8 when a chain id is configured.
func EncodeV(recoveryId uint8, chainID *big.Int) *big.Int {
	v := big.NewInt(int64(recoveryId) + 27)
	if chainID != nil && chainID.Sign() > 0 {
		v.Add(v, new(big.Int).Mul(chainID, big.NewInt(2)))
		v.Add(v, big.NewInt(8))
	}
	return v
}

// SignedTransaction is a finalized transaction ready for submission.
type SignedTransaction struct {
	Tx        *types.Transaction
	Raw       []byte
	Hash      common.Hash
	Signature Signature
}

// NewSignedTransaction serializes tx into its canonical wire encoding.
func NewSignedTransaction(tx *types.Transaction) (*SignedTransaction, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{
		Tx:        tx,
		Raw:       raw,
		Hash:      tx.Hash(),
		Signature: SignatureFromTx(tx),
	}, nil
}

// DecodeSignedTransaction parses a signed payload returned verbatim by a remote signer.
func DecodeSignedTransaction(raw []byte) (*SignedTransaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return &SignedTransaction{
		Tx:        tx,
		Raw:       raw,
		Hash:      tx.Hash(),
		Signature: SignatureFromTx(tx),
	}, nil
}

// SignatureFromTx extracts r, s and the recovery id from a signed legacy transaction,
// reversing the replay protection offset.
func SignatureFromTx(tx *types.Transaction) Signature {
	v, r, s := tx.RawSignatureValues()
	var sig Signature
	r.FillBytes(sig.R[:])
	s.FillBytes(sig.S[:])

	rec := new(big.Int).Sub(v, big.NewInt(27))
	if tx.Protected() {
		offset := new(big.Int).Mul(tx.ChainId(), big.NewInt(2))
		offset.Add(offset, big.NewInt(8))
		rec.Sub(rec, offset)
	}
	if rec.Sign() >= 0 && rec.Cmp(big.NewInt(3)) <= 0 {
		id := uint8(rec.Uint64())
		sig.RecoveryId = &id
	}
	return sig
}

// Payload returns the 0x-prefixed hex serialization.
func (s *SignedTransaction) Payload() string {
	return hexutil.Encode(s.Raw)
}

// ReceiptStatus is the outcome reported by the network.
type ReceiptStatus int

const (
	ReceiptStatusFailure ReceiptStatus = iota
	ReceiptStatusSuccess
)

func (s ReceiptStatus) String() string {
	if s == ReceiptStatusSuccess {
		return "success"
	}
	return "failure"
}

// Receipt is the uniform confirmation result for public and private transactions.
type Receipt struct {
	TransactionHash common.Hash
	ContractAddress *common.Address
	Status          ReceiptStatus
	Output          []byte
}

// ReceiptFromEth converts a go-ethereum receipt.
func ReceiptFromEth(r *types.Receipt) *Receipt {
	out := &Receipt{
		TransactionHash: r.TxHash,
		Status:          ReceiptStatusFailure,
	}
	if r.Status == types.ReceiptStatusSuccessful {
		out.Status = ReceiptStatusSuccess
	}
	if r.ContractAddress != (common.Address{}) {
		addr := r.ContractAddress
		out.ContractAddress = &addr
	}
	return out
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

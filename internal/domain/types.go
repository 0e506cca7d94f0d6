package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is the on-ledger identity of a participant (buyer, company,
// customer, payment processor). Identities are EVM-style addresses normalized
// to their EIP-55 checksummed form so that database keys and comparisons are
// case-insensitive by construction.
type Identity string

// NewIdentity validates and normalizes a raw address string into an Identity.
func NewIdentity(raw string) (Identity, error) {
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("%w: %q is not a valid address", ErrInvalidIdentity, raw)
	}
	return Identity(common.HexToAddress(raw).Hex()), nil
}

// MustIdentity is NewIdentity for literals in tests and wiring code.
func MustIdentity(raw string) Identity {
	id, err := NewIdentity(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether the identity is a well-formed address.
func (i Identity) Valid() bool {
	return common.IsHexAddress(string(i))
}

func (i Identity) String() string {
	return string(i)
}

// Equal compares two identities ignoring checksum casing.
func (i Identity) Equal(other Identity) bool {
	return strings.EqualFold(string(i), string(other))
}

// RegistryName identifies a registry for write-authorization wiring.
type RegistryName string

const (
	RegistryCompany  RegistryName = "company"
	RegistryProduct  RegistryName = "product"
	RegistryCustomer RegistryName = "customer"
	RegistryInvoice  RegistryName = "invoice"
)

// Wiring capability names for the value token. These are set exactly once
// during bootstrap, alongside the registry writer entries.
const (
	WiringTokenPaymentContract = "token.payment_contract"
	WiringTokenFeeCollector    = "token.fee_collector"
)

// WiringWriterKey returns the wiring key holding a registry's writer identity.
func WiringWriterKey(registry RegistryName) string {
	return string(registry) + ".writer"
}

// PurchaseItem is a single line of a purchase request submitted by a buyer.
// UnitPrice is the client's view of the price and must match the catalog
// exactly at execution time.
type PurchaseItem struct {
	Company   Identity `json:"company"`
	ProductID uint64   `json:"product_id"`
	Quantity  int64    `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
}

package enums

import "fmt"

// WalletEntryType maps to the append-only wallet ledger entries.
type WalletEntryType string

const (
	WalletEntryTypeCheckoutDebit  WalletEntryType = "checkout_debit"
	WalletEntryTypeCashbackCredit WalletEntryType = "cashback_credit"
	WalletEntryTypeRefundCredit   WalletEntryType = "refund_credit"
	WalletEntryTypeAdjustment     WalletEntryType = "adjustment"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeCheckoutDebit,
	WalletEntryTypeCashbackCredit,
	WalletEntryTypeRefundCredit,
	WalletEntryTypeAdjustment,
}

// IsCredit reports whether the entry increases the balance.
func (t WalletEntryType) IsCredit() bool {
	return t == WalletEntryTypeCashbackCredit || t == WalletEntryTypeRefundCredit
}

// IsValid reports whether the value matches the canonical wallet entry enum.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}

// Package views defines the cached read-views of the wallet UI and which of them a
// successful mutation must invalidate.
package views

import "fmt"

// View names a family of cached read-views.
type View string

const (
	Wallet        View = "wallet"
	Transactions  View = "transactions"
	Identity      View = "identity"
	Beneficiaries View = "beneficiaries"
)

// ViewKey identifies one cached read-view scoped to a principal, e.g. "wallet:u-123".
type ViewKey string

// Key builds the ViewKey of view v for the given principal key.
func Key(v View, userKey string) ViewKey {
	return ViewKey(fmt.Sprintf("%s:%s", v, userKey))
}

// MutationKind classifies a state-changing operation by what it can affect.
type MutationKind string

const (
	// MutationBalance moves money: transfers, bill payments, savings, investments.
	MutationBalance MutationKind = "balance"
	// MutationBeneficiary moves money and changes the saved beneficiaries.
	MutationBeneficiary MutationKind = "beneficiary"
	// MutationIdentity changes verification state: BVN-equivalent checks, PIN creation.
	MutationIdentity MutationKind = "identity"
)

// balanceViews are invalidated, in this order, by any balance-affecting mutation.
// Identity is included because tier and limits can depend on balance history.
var balanceViews = []View{Wallet, Transactions, Identity}

// Views returns the view families a successful mutation of kind k must invalidate, in order.
func Views(k MutationKind) []View {
	switch k {
	case MutationBalance:
		return append([]View(nil), balanceViews...)
	case MutationBeneficiary:
		return append(append([]View(nil), balanceViews...), Beneficiaries)
	case MutationIdentity:
		return []View{Identity}
	default:
		return nil
	}
}

// Plan returns the concrete keys to invalidate for userKey, in order.
func Plan(k MutationKind, userKey string) []ViewKey {
	vs := Views(k)
	keys := make([]ViewKey, 0, len(vs))
	for _, v := range vs {
		keys = append(keys, Key(v, userKey))
	}
	return keys
}

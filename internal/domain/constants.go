package domain

// Workflow statuses shared by balance entries and transactions.
const (
	StatusDraft      = "draft"
	StatusSubmitted  = "submitted"
	StatusAuthorized = "authorized"
	StatusRejected   = "rejected"
)

// Transaction types.
const (
	TxTypePurchase = "purchase"
	TxTypeSale     = "sale"
)

// Balance item categories.
const (
	CategoryAsset         = "asset"
	CategoryLiability     = "liability"
	CategoryMemoAsset     = "memo_asset"
	CategoryMemoLiability = "memo_liability"
)

// Balance item types.
const (
	BalanceTypeOnSheet  = "on_balance_sheet"
	BalanceTypeOffSheet = "off_balance_sheet"
)

// Balance entry sources.
const (
	SourceManual      = "manual"
	SourceTransaction = "transaction"
)

// Alert types.
const (
	AlertMaxLimitExceeded = "MAX_LIMIT_EXCEEDED"
	AlertMinLimitViolated = "MIN_LIMIT_VIOLATED"
)

// Correspondent limit statuses reported per bank.
const (
	LimitStatusWithin   = "WITHIN_LIMIT"
	LimitStatusAboveMax = "ABOVE_MAX"
	LimitStatusBelowMin = "BELOW_MIN"
)

// Position types.
const (
	PositionLong  = "long"
	PositionShort = "short"
)

// Roles carried by the authenticated actor.
const (
	RoleMaker      = "maker"
	RoleAuthorizer = "authorizer"
	RoleAdmin      = "admin"
)

// Default catalog codes of the items touched by transaction propagation.
const (
	DefaultCashItemCode     = "CASH_ON_HAND"
	DefaultDueFromBanksCode = "DUE_FROM_BANKS"
	DefaultDueToBanksCode   = "DUE_TO_BANKS"
)

// ValidCategory reports whether c is a known balance item category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryMemoAsset, CategoryMemoLiability:
		return true
	}
	return false
}

// ValidTxType reports whether t is a known transaction type.
func ValidTxType(t string) bool {
	return t == TxTypePurchase || t == TxTypeSale
}

// ValidRole reports whether r is a role the engine recognizes.
func ValidRole(r string) bool {
	switch r {
	case RoleMaker, RoleAuthorizer, RoleAdmin:
		return true
	}
	return false
}

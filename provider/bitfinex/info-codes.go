package bitfinex

// InfoCategory is the semantic category of a two-letter account-info code.
type InfoCategory string

const (
	CategoryWallet        InfoCategory = "wallet"
	CategoryOrders        InfoCategory = "orders"
	CategoryPrivateTrades InfoCategory = "private-trades"
	CategoryPositions     InfoCategory = "positions"
)

var infoCodeCategories = map[string]InfoCategory{
	"ws": CategoryWallet,
	"wu": CategoryWallet,

	"os": CategoryOrders,
	"on": CategoryOrders,
	"ou": CategoryOrders,
	"oc": CategoryOrders,

	"te": CategoryPrivateTrades,
	"tu": CategoryPrivateTrades,

	"ps": CategoryPositions,
	"pn": CategoryPositions,
	"pu": CategoryPositions,
	"pc": CategoryPositions,
}

// infoCodeCategory resolves an update-type code to its category. Unknown
// codes pass through as their own category so they never hit one of the
// four semantic branches.
func infoCodeCategory(code string) InfoCategory {
	if category, ok := infoCodeCategories[code]; ok {
		return category
	}

	return InfoCategory(code)
}

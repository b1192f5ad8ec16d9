package square

import "encoding/json"

// Catalog object types returned by the listing endpoint.
const (
	ObjectTypeItem          = "ITEM"
	ObjectTypeItemVariation = "ITEM_VARIATION"
)

// CatalogObject is one entry of a catalog listing. Raw preserves the exact
// listing payload for storage alongside the decoded fields.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CatalogObject struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Version   int64           `json:"version"`
	IsDeleted bool            `json:"is_deleted"`
	ItemData  *ItemData       `json:"item_data,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// ItemData carries the item-level fields of an ITEM catalog object.
type ItemData struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Variations  []ItemVariation `json:"variations"`
}

// ItemVariation is a nested variation object under an ITEM.
type ItemVariation struct {
	ID                string             `json:"id"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
}

// ItemVariationData carries the variation-level pricing fields.
type ItemVariationData struct {
	Name       string `json:"name"`
	PriceMoney *Money `json:"price_money,omitempty"`
}

// Money is an amount in minor currency units with its currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

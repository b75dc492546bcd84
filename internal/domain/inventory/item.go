package inventory

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Item is the engine's view of an inventory item record.
type Item struct {
	ID               uuid.UUID `json:"id"`
	HoldingsRecordID uuid.UUID `json:"holdingsRecordId"`
	Barcode          string    `json:"barcode"`
	CallNumber       string    `json:"callNumber"`
	AccessionNumber  string    `json:"accessionNumber"`
}

func decodeItem(raw json.RawMessage) (Item, error) {
	var it Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return Item{}, &ValidationError{Reason: "malformed item value: " + err.Error()}
	}
	if it.ID == uuid.Nil {
		return Item{}, &ValidationError{Reason: "item value without id"}
	}
	return it, nil
}

// RelevantFieldsChanged reports whether any field the engine mirrors onto
// pieces differs between the two item states.
func (i Item) RelevantFieldsChanged(old Item) bool {
	return i.HoldingsRecordID != old.HoldingsRecordID ||
		i.Barcode != old.Barcode ||
		i.CallNumber != old.CallNumber ||
		i.AccessionNumber != old.AccessionNumber
}

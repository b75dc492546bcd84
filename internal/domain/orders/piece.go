package orders

import (
	"github.com/google/uuid"
)

// Piece represents one expected or received unit tied to a purchase order
// line, optionally linked to an inventory item and holding.
// ReceivingTenantID tracks the consortium member that currently owns physical
// custody of the piece.
type Piece struct {
	ID                uuid.UUID
	PoLineID          uuid.UUID
	TitleID           uuid.UUID
	HoldingID         *uuid.UUID
	LocationID        *uuid.UUID
	ItemID            *uuid.UUID
	ReceivingTenantID string
	Barcode           string
	CallNumber        string
	AccessionNumber   string
}

// Pinned reports whether the piece has an explicit location. A pinned piece
// keeps its holding regardless of where its item moves.
func (p *Piece) Pinned() bool {
	return p.LocationID != nil
}

// HoldingEquals reports whether the piece already points at the holding.
func (p *Piece) HoldingEquals(holdingID uuid.UUID) bool {
	return p.HoldingID != nil && *p.HoldingID == holdingID
}

// ItemFields is the subset of item state a piece mirrors.
type ItemFields struct {
	HoldingID       uuid.UUID
	Barcode         string
	CallNumber      string
	AccessionNumber string
}

// DiffersFromItem reports whether the piece is out of sync with the item
// fields. A pinned piece ignores holding moves; descriptive fields are always
// compared.
func (p *Piece) DiffersFromItem(f ItemFields) bool {
	if !p.Pinned() && !p.HoldingEquals(f.HoldingID) {
		return true
	}
	return p.Barcode != f.Barcode ||
		p.CallNumber != f.CallNumber ||
		p.AccessionNumber != f.AccessionNumber
}

// ApplyItemFields copies the item fields onto the piece. The holding is only
// followed when the piece is not pinned.
func (p *Piece) ApplyItemFields(f ItemFields) {
	if !p.Pinned() {
		id := f.HoldingID
		p.HoldingID = &id
	}
	p.Barcode = f.Barcode
	p.CallNumber = f.CallNumber
	p.AccessionNumber = f.AccessionNumber
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/libhub/orders-storage/internal/domain/orders"
)

// PoLineModel is the persistence model for purchase order lines. Locations and
// search location ids are stored as jsonb documents so that holding references
// can be queried with containment operators.
type PoLineModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID          string            `gorm:"type:varchar(63);not null;index:idx_po_lines_tenant"`
	PurchaseOrderID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	InstanceID        *uuid.UUID        `gorm:"type:uuid;index"`
	PoLineNumber      string            `gorm:"type:varchar(32);not null"`
	Locations         []orders.Location `gorm:"serializer:json;type:jsonb;not null;default:'[]'"`
	SearchLocationIDs []uuid.UUID       `gorm:"serializer:json;type:jsonb;not null;default:'[]';column:search_location_ids"`
	CreatedAt         time.Time         `gorm:"not null;default:now()"`
	UpdatedAt         time.Time         `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (PoLineModel) TableName() string {
	return "po_lines"
}

// ToDomain converts the persistence model to a domain PoLine
func (m *PoLineModel) ToDomain() orders.PoLine {
	return orders.PoLine{
		ID:                m.ID,
		PurchaseOrderID:   m.PurchaseOrderID,
		InstanceID:        m.InstanceID,
		PoLineNumber:      m.PoLineNumber,
		Locations:         m.Locations,
		SearchLocationIDs: m.SearchLocationIDs,
	}
}

// PoLineModelFromDomain creates a persistence model from a domain PoLine
func PoLineModelFromDomain(tenantID string, l *orders.PoLine) *PoLineModel {
	return &PoLineModel{
		ID:                l.ID,
		TenantID:          tenantID,
		PurchaseOrderID:   l.PurchaseOrderID,
		InstanceID:        l.InstanceID,
		PoLineNumber:      l.PoLineNumber,
		Locations:         l.Locations,
		SearchLocationIDs: l.SearchLocationIDs,
	}
}

// TitleModel is the persistence model for the bibliographic title attached to
// a purchase order line.
type TitleModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   string     `gorm:"type:varchar(63);not null;index:idx_titles_tenant"`
	PoLineID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	InstanceID *uuid.UUID `gorm:"type:uuid"`
	Title      string     `gorm:"type:text;not null"`
	CreatedAt  time.Time  `gorm:"not null;default:now()"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (TitleModel) TableName() string {
	return "titles"
}

// ToDomain converts the persistence model to a domain Title
func (m *TitleModel) ToDomain() orders.Title {
	return orders.Title{
		ID:         m.ID,
		PoLineID:   m.PoLineID,
		InstanceID: m.InstanceID,
		Title:      m.Title,
	}
}

// PieceModel is the persistence model for pieces.
type PieceModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID          string     `gorm:"type:varchar(63);not null;index:idx_pieces_tenant"`
	PoLineID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	TitleID           uuid.UUID  `gorm:"type:uuid;not null"`
	HoldingID         *uuid.UUID `gorm:"type:uuid;index:idx_pieces_holding"`
	LocationID        *uuid.UUID `gorm:"type:uuid"`
	ItemID            *uuid.UUID `gorm:"type:uuid;index:idx_pieces_item"`
	ReceivingTenantID string     `gorm:"type:varchar(63)"`
	Barcode           string     `gorm:"type:varchar(255)"`
	CallNumber        string     `gorm:"type:varchar(255)"`
	AccessionNumber   string     `gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `gorm:"not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (PieceModel) TableName() string {
	return "pieces"
}

// ToDomain converts the persistence model to a domain Piece
func (m *PieceModel) ToDomain() orders.Piece {
	return orders.Piece{
		ID:                m.ID,
		PoLineID:          m.PoLineID,
		TitleID:           m.TitleID,
		HoldingID:         m.HoldingID,
		LocationID:        m.LocationID,
		ItemID:            m.ItemID,
		ReceivingTenantID: m.ReceivingTenantID,
		Barcode:           m.Barcode,
		CallNumber:        m.CallNumber,
		AccessionNumber:   m.AccessionNumber,
	}
}

// PieceModelFromDomain creates a persistence model from a domain Piece
func PieceModelFromDomain(tenantID string, p *orders.Piece) *PieceModel {
	return &PieceModel{
		ID:                p.ID,
		TenantID:          tenantID,
		PoLineID:          p.PoLineID,
		TitleID:           p.TitleID,
		HoldingID:         p.HoldingID,
		LocationID:        p.LocationID,
		ItemID:            p.ItemID,
		ReceivingTenantID: p.ReceivingTenantID,
		Barcode:           p.Barcode,
		CallNumber:        p.CallNumber,
		AccessionNumber:   p.AccessionNumber,
	}
}

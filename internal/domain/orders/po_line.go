package orders

import (
	"github.com/google/uuid"
)

// Location ties a purchase order line to an inventory holding. TenantID
// records which consortium member owns the holding; it is empty for
// non-consortial installations.
type Location struct {
	HoldingID  *uuid.UUID `json:"holdingId,omitempty"`
	LocationID *uuid.UUID `json:"locationId,omitempty"`
	TenantID   string     `json:"tenantId,omitempty"`
	Quantity   int        `json:"quantity,omitempty"`
}

// PoLine is a purchase order line. The reconciliation engine reads lines that
// reference a holding and writes InstanceID, per-location TenantID and
// SearchLocationIDs; everything else belongs to the CRUD surface.
type PoLine struct {
	ID                uuid.UUID
	PurchaseOrderID   uuid.UUID
	InstanceID        *uuid.UUID
	PoLineNumber      string
	Locations         []Location
	SearchLocationIDs []uuid.UUID
}

// ReferencesHolding reports whether any location of the line points at the
// given holding.
func (l *PoLine) ReferencesHolding(holdingID uuid.UUID) bool {
	for _, loc := range l.Locations {
		if loc.HoldingID != nil && *loc.HoldingID == holdingID {
			return true
		}
	}
	return false
}

// HoldingIDs returns the distinct holding ids referenced by the line's
// locations, preserving first-seen order.
func (l *PoLine) HoldingIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(l.Locations))
	ids := make([]uuid.UUID, 0, len(l.Locations))
	for _, loc := range l.Locations {
		if loc.HoldingID == nil {
			continue
		}
		if _, ok := seen[*loc.HoldingID]; ok {
			continue
		}
		seen[*loc.HoldingID] = struct{}{}
		ids = append(ids, *loc.HoldingID)
	}
	return ids
}

// HasSearchLocation reports whether the given location id is already part of
// the line's search location set.
func (l *PoLine) HasSearchLocation(locationID uuid.UUID) bool {
	for _, id := range l.SearchLocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// AddSearchLocation appends the location id to SearchLocationIDs unless it is
// already present. Returns true when the line changed.
func (l *PoLine) AddSearchLocation(locationID uuid.UUID) bool {
	if l.HasSearchLocation(locationID) {
		return false
	}
	l.SearchLocationIDs = append(l.SearchLocationIDs, locationID)
	return true
}

// AssignHoldingTenant sets the owning tenant on every location entry that
// references the holding. Returns true when at least one entry changed.
func (l *PoLine) AssignHoldingTenant(holdingID uuid.UUID, tenantID string) bool {
	changed := false
	for i := range l.Locations {
		loc := &l.Locations[i]
		if loc.HoldingID != nil && *loc.HoldingID == holdingID && loc.TenantID != tenantID {
			loc.TenantID = tenantID
			changed = true
		}
	}
	return changed
}

// SetInstance replaces the line's instance reference. Returns true when the
// line changed; assigning the instance the line already has is a no-op, which
// is what keeps re-delivered holding events from looping.
func (l *PoLine) SetInstance(instanceID uuid.UUID) bool {
	if l.InstanceID != nil && *l.InstanceID == instanceID {
		return false
	}
	id := instanceID
	l.InstanceID = &id
	return true
}

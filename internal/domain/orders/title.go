package orders

import "github.com/google/uuid"

// Title is the bibliographic record attached to a purchase order line. The
// engine only keeps its instance reference consistent with the line.
type Title struct {
	ID         uuid.UUID
	PoLineID   uuid.UUID
	InstanceID *uuid.UUID
	Title      string
}

package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence/models"
)

// idChunkSize caps the number of ids per IN query to respect query-size
// limits on large batches.
const idChunkSize = 15

// GormPoLineRepository implements the reconciliation PoLineStore using GORM
type GormPoLineRepository struct {
	db *gorm.DB
}

// NewGormPoLineRepository creates a new GormPoLineRepository
func NewGormPoLineRepository(db *gorm.DB) *GormPoLineRepository {
	return &GormPoLineRepository{db: db}
}

// FindByHoldingID returns the lines whose locations reference the holding.
// Uses jsonb containment against the locations document.
func (r *GormPoLineRepository) FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.PoLine, error) {
	cond, err := json.Marshal([]map[string]string{{"holdingId": holdingID.String()}})
	if err != nil {
		return nil, fmt.Errorf("failed to build holding containment query: %w", err)
	}

	var ms []models.PoLineModel
	if err := session(r.db, tx).WithContext(ctx).
		Where("tenant_id = ? AND locations @> ?", tenantID, string(cond)).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainLines(ms), nil
}

// FindByIDs returns the lines with the given ids, queried in fixed-size chunks
func (r *GormPoLineRepository) FindByIDs(ctx context.Context, tx *gorm.DB, tenantID string, ids []uuid.UUID) ([]orders.PoLine, error) {
	if len(ids) == 0 {
		return []orders.PoLine{}, nil
	}

	lines := make([]orders.PoLine, 0, len(ids))
	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		var ms []models.PoLineModel
		if err := session(r.db, tx).WithContext(ctx).
			Where("tenant_id = ? AND id IN ?", tenantID, ids[start:end]).
			Find(&ms).Error; err != nil {
			return nil, err
		}
		lines = append(lines, toDomainLines(ms)...)
	}
	return lines, nil
}

// UpdateBatch persists the reconciliation-owned fields of the given lines
func (r *GormPoLineRepository) UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	db := session(r.db, tx).WithContext(ctx)
	for i := range lines {
		m := models.PoLineModelFromDomain(tenantID, &lines[i])
		m.UpdatedAt = time.Now()
		if err := db.Model(&models.PoLineModel{}).
			Where("tenant_id = ? AND id = ?", tenantID, m.ID).
			Select("instance_id", "locations", "search_location_ids", "updated_at").
			Updates(m).Error; err != nil {
			return fmt.Errorf("failed to update po line %s: %w", m.ID, err)
		}
	}
	return nil
}

// SyncTitles refreshes each line's title record so its instance reference
// matches the line
func (r *GormPoLineRepository) SyncTitles(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	db := session(r.db, tx).WithContext(ctx)
	for i := range lines {
		line := &lines[i]
		if err := db.Model(&models.TitleModel{}).
			Where("tenant_id = ? AND po_line_id = ?", tenantID, line.ID).
			Updates(map[string]any{
				"instance_id": line.InstanceID,
				"updated_at":  time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to sync title for po line %s: %w", line.ID, err)
		}
	}
	return nil
}

// UpdateLocationData refreshes the location data of the given lines against
// the item's new holding. Each line's quantity per holding is recomputed from
// its pieces; a line whose pieces now sit on the item's holding gains an entry
// for it. Only lines that actually changed are persisted and returned.
func (r *GormPoLineRepository) UpdateLocationData(ctx context.Context, tx *gorm.DB, tenantID string, poLineIDs []uuid.UUID, item inventory.Item) ([]orders.PoLine, error) {
	lines, err := r.FindByIDs(ctx, tx, tenantID, poLineIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []orders.PoLine{}, nil
	}

	var pieceModels []models.PieceModel
	if err := session(r.db, tx).WithContext(ctx).
		Where("tenant_id = ? AND po_line_id IN ?", tenantID, poLineIDs).
		Find(&pieceModels).Error; err != nil {
		return nil, err
	}

	// Unpinned piece counts per (line, holding). Pinned pieces keep their
	// explicit location and do not move with the item.
	counts := make(map[uuid.UUID]map[uuid.UUID]int)
	for i := range pieceModels {
		p := &pieceModels[i]
		if p.HoldingID == nil || p.LocationID != nil {
			continue
		}
		byHolding := counts[p.PoLineID]
		if byHolding == nil {
			byHolding = make(map[uuid.UUID]int)
			counts[p.PoLineID] = byHolding
		}
		byHolding[*p.HoldingID]++
	}

	changed := make([]orders.PoLine, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		if reconcileLineLocations(line, counts[line.ID], item.HoldingsRecordID) {
			changed = append(changed, *line)
		}
	}
	if len(changed) == 0 {
		return []orders.PoLine{}, nil
	}

	if err := r.UpdateBatch(ctx, tx, tenantID, changed); err != nil {
		return nil, err
	}
	return changed, nil
}

// reconcileLineLocations aligns a line's location entries with the piece
// counts per holding. Returns true when the line changed.
func reconcileLineLocations(line *orders.PoLine, byHolding map[uuid.UUID]int, itemHoldingID uuid.UUID) bool {
	changed := false
	referenced := make(map[uuid.UUID]bool, len(line.Locations))

	for i := range line.Locations {
		loc := &line.Locations[i]
		if loc.HoldingID == nil {
			continue
		}
		referenced[*loc.HoldingID] = true
		if n, ok := byHolding[*loc.HoldingID]; ok && loc.Quantity != n {
			loc.Quantity = n
			changed = true
		}
	}

	// The item's move may land pieces on a holding the line never referenced.
	if n, ok := byHolding[itemHoldingID]; ok && !referenced[itemHoldingID] {
		id := itemHoldingID
		line.Locations = append(line.Locations, orders.Location{
			HoldingID: &id,
			Quantity:  n,
		})
		changed = true
	}
	return changed
}

func toDomainLines(ms []models.PoLineModel) []orders.PoLine {
	lines := make([]orders.PoLine, 0, len(ms))
	for i := range ms {
		lines = append(lines, ms[i].ToDomain())
	}
	return lines
}

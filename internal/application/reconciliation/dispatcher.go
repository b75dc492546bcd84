package reconciliation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/domain/inventory"
)

type dispatchKey struct {
	kind   inventory.ResourceKind
	action inventory.EventAction
}

// Dispatcher routes validated resource events to the handler registered for
// their kind and action. Events nobody handles, and events from tenants
// without centralized ordering, succeed as no-ops so that compacted replays
// and unrelated topics cannot poison the consumer.
type Dispatcher struct {
	resolver TenantResolver
	handlers map[dispatchKey]Handler
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over the given handlers
func NewDispatcher(resolver TenantResolver, logger *zap.Logger, handlers ...Handler) *Dispatcher {
	m := make(map[dispatchKey]Handler, len(handlers))
	for _, h := range handlers {
		m[dispatchKey{kind: h.Kind(), action: h.Action()}] = h
	}
	return &Dispatcher{
		resolver: resolver,
		handlers: m,
		logger:   logger,
	}
}

// Dispatch resolves the tenant context and runs the matching handler. The
// returned error is the event's failure result; nil means the event may be
// acknowledged.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *inventory.ResourceEvent) error {
	handler, ok := d.handlers[dispatchKey{kind: evt.Kind, action: evt.Action}]
	if !ok {
		d.logger.Debug("no handler for event, skipping",
			zap.String("kind", string(evt.Kind)),
			zap.String("action", string(evt.Action)),
		)
		return nil
	}

	centralTenant, enabled, err := d.resolver.CentralTenantID(ctx, evt.Tenant)
	if err != nil {
		return fmt.Errorf("resolving central tenant for %q: %w", evt.Tenant, err)
	}
	if !enabled {
		d.logger.Debug("tenant has no centralized ordering, skipping event",
			zap.String("tenant", evt.Tenant),
		)
		return nil
	}

	ec := EventContext{
		OriginTenant:  evt.Tenant,
		CentralTenant: centralTenant,
		Headers:       evt.Headers,
	}
	return handler.Handle(ctx, evt, ec)
}

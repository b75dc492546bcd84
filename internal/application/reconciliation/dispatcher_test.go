package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/domain/inventory"
)

type stubHandler struct {
	kind   inventory.ResourceKind
	action inventory.EventAction

	calls  int
	lastEC EventContext
	err    error
}

func (s *stubHandler) Kind() inventory.ResourceKind  { return s.kind }
func (s *stubHandler) Action() inventory.EventAction { return s.action }

func (s *stubHandler) Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error {
	s.calls++
	s.lastEC = ec
	return s.err
}

func TestDispatcher_RoutesToMatchingHandler(t *testing.T) {
	resolver := new(MockTenantResolver)
	resolver.On("CentralTenantID", mock.Anything, "member").Return("central", true, nil)

	handler := &stubHandler{kind: inventory.KindHolding, action: inventory.ActionUpdate}
	d := NewDispatcher(resolver, zap.NewNop(), handler)

	evt := &inventory.ResourceEvent{
		Kind:    inventory.KindHolding,
		Action:  inventory.ActionUpdate,
		Tenant:  "member",
		Headers: map[string]string{"x-request-id": "req-1"},
	}
	err := d.Dispatch(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, "member", handler.lastEC.OriginTenant)
	assert.Equal(t, "central", handler.lastEC.CentralTenant)
	assert.Equal(t, "req-1", handler.lastEC.Headers["x-request-id"])
	resolver.AssertExpectations(t)
}

func TestDispatcher_UnhandledEventIsAcknowledged(t *testing.T) {
	resolver := new(MockTenantResolver)

	handler := &stubHandler{kind: inventory.KindHolding, action: inventory.ActionUpdate}
	d := NewDispatcher(resolver, zap.NewNop(), handler)

	evt := &inventory.ResourceEvent{Kind: inventory.KindItem, Action: inventory.ActionCreate, Tenant: "member"}
	err := d.Dispatch(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, 0, handler.calls)
	resolver.AssertNotCalled(t, "CentralTenantID", mock.Anything, mock.Anything)
}

func TestDispatcher_SkipsTenantsWithoutCentralOrdering(t *testing.T) {
	resolver := new(MockTenantResolver)
	resolver.On("CentralTenantID", mock.Anything, "standalone").Return("", false, nil)

	handler := &stubHandler{kind: inventory.KindHolding, action: inventory.ActionUpdate}
	d := NewDispatcher(resolver, zap.NewNop(), handler)

	evt := &inventory.ResourceEvent{Kind: inventory.KindHolding, Action: inventory.ActionUpdate, Tenant: "standalone"}
	err := d.Dispatch(context.Background(), evt)

	require.NoError(t, err)
	assert.Equal(t, 0, handler.calls)
	resolver.AssertExpectations(t)
}

func TestDispatcher_ResolverFailureFailsEvent(t *testing.T) {
	resolver := new(MockTenantResolver)
	resolver.On("CentralTenantID", mock.Anything, "member").Return("", false, errors.New("cache down"))

	handler := &stubHandler{kind: inventory.KindHolding, action: inventory.ActionUpdate}
	d := NewDispatcher(resolver, zap.NewNop(), handler)

	evt := &inventory.ResourceEvent{Kind: inventory.KindHolding, Action: inventory.ActionUpdate, Tenant: "member"}
	err := d.Dispatch(context.Background(), evt)

	require.Error(t, err)
	assert.Equal(t, 0, handler.calls)
	resolver.AssertExpectations(t)
}

func TestDispatcher_HandlerErrorPropagates(t *testing.T) {
	resolver := new(MockTenantResolver)
	resolver.On("CentralTenantID", mock.Anything, "member").Return("central", true, nil)

	handler := &stubHandler{
		kind:   inventory.KindHolding,
		action: inventory.ActionUpdate,
		err:    errors.New("db unavailable"),
	}
	d := NewDispatcher(resolver, zap.NewNop(), handler)

	evt := &inventory.ResourceEvent{Kind: inventory.KindHolding, Action: inventory.ActionUpdate, Tenant: "member"}
	err := d.Dispatch(context.Background(), evt)

	require.Error(t, err)
	assert.Equal(t, 1, handler.calls)
}

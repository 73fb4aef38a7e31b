package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

type dispatchFixture struct {
	router     *Router
	registry   *Registry
	retries    *RetryQueue
	dispatcher *Dispatcher
	transport  *fakeTransport
}

func newDispatchFixture() *dispatchFixture {
	router := NewRouter()
	registry := NewRegistry(router)
	retries := NewRetryQueue(RetryOptions{}, zerolog.Nop())
	d := NewDispatcher(registry, router, nil, retries, zerolog.Nop())
	retries.SetDeliverer(d)
	tr := newFakeTransport()
	d.SetSender(tr)
	return &dispatchFixture{router: router, registry: registry, retries: retries, dispatcher: d, transport: tr}
}

func (f *dispatchFixture) connect(connID, userID string, role domain.Role) {
	f.registry.Register(connID)
	if role.Valid() {
		if _, err := f.registry.Authenticate(connID, userID, role); err != nil {
			panic(err)
		}
	}
}

func TestDispatcher_ProjectEncodesBothAudiences(t *testing.T) {
	f := newDispatchFixture()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	proj, err := f.dispatcher.Project(domain.Event{Kind: domain.KindProductUpdated, Full: productPayload(), Timestamp: ts})
	require.NoError(t, err)

	var full, redacted struct {
		Type      string         `json:"type"`
		Data      map[string]any `json:"data"`
		Timestamp time.Time      `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(proj.Full, &full))
	require.NoError(t, json.Unmarshal(proj.Redacted, &redacted))

	require.Equal(t, "product_updated", full.Type)
	require.True(t, ts.Equal(full.Timestamp))
	require.Contains(t, full.Data, "costBasis")
	require.NotContains(t, redacted.Data, "costBasis")
	require.Equal(t, proj.Full, proj.For(domain.RoleAdmin))
	require.Equal(t, proj.Redacted, proj.For(domain.RolePartner))
}

func TestDispatcher_CallerRedactedPayloadIsStillPoliced(t *testing.T) {
	f := newDispatchFixture()
	f.connect("p", "p1", domain.RolePartner)

	leaky := domain.Payload{"id": "prod-1", "adminNotes": "caller forgot to strip this"}
	_, err := f.dispatcher.Dispatch(domain.Event{Kind: domain.KindProductCreated, Full: productPayload(), Redacted: leaky})
	require.NoError(t, err)

	got := f.transport.envelopes("p")
	require.Len(t, got, 1)
	require.Equal(t, map[string]any{"id": "prod-1"}, got[0].Data)
}

func TestDispatcher_EmptyChannelIsSilentNoop(t *testing.T) {
	f := newDispatchFixture()

	res, err := f.dispatcher.Dispatch(domain.Event{
		Kind:    domain.KindNotification,
		Full:    domain.Payload{"message": "hello"},
		Targets: []domain.Channel{domain.PartnerChannel("nobody")},
	})

	require.NoError(t, err)
	require.Equal(t, DispatchResult{}, res)
	require.Empty(t, f.transport.sent)
	require.Zero(t, f.retries.Len())
}

func TestDispatcher_UnauthenticatedConnectionsGetNothing(t *testing.T) {
	f := newDispatchFixture()
	f.connect("anon", "", domain.RoleUnauthenticated)
	f.connect("a", "a1", domain.RoleAdmin)

	_, err := f.dispatcher.Dispatch(domain.Event{Kind: domain.KindProductCreated, Full: productPayload()})

	require.NoError(t, err)
	require.Zero(t, f.transport.count("anon"))
	require.Equal(t, 1, f.transport.count("a"))
}

func TestDispatcher_ConnectionInTwoTargetsReceivesOnce(t *testing.T) {
	f := newDispatchFixture()
	f.connect("c2", "p1", domain.RolePartner)

	res, err := f.dispatcher.Dispatch(domain.Event{
		Kind:    domain.KindNotification,
		Full:    domain.Payload{"message": "price list updated"},
		Targets: []domain.Channel{domain.ChannelPartners, domain.PartnerChannel("p1")},
	})

	require.NoError(t, err)
	require.Equal(t, 1, res.Recipients)
	require.Equal(t, 1, f.transport.count("c2"))
}

func TestDispatcher_FailureQueuesOneItemPerChannel(t *testing.T) {
	f := newDispatchFixture()
	f.connect("p1a", "p1", domain.RolePartner)
	f.connect("p1b", "p1", domain.RolePartner)
	f.transport.failAlways("p1a")
	f.transport.failAlways("p1b")

	res, err := f.dispatcher.Dispatch(domain.Event{Kind: domain.KindOrderUpdated, PartnerID: "p1", Full: domain.Payload{"id": "o1"}})

	require.NoError(t, err)
	require.Equal(t, 2, res.Failed)
	require.Equal(t, 1, res.Queued)
	pending := f.retries.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, domain.PartnerChannel("p1"), pending[0].Channel)
	require.Zero(t, pending[0].Attempts)
}

func TestDispatcher_UnregisterRacingDispatchNeverResolvesStaleMember(t *testing.T) {
	f := newDispatchFixture()
	for i := 0; i < 50; i++ {
		f.connect(connName(i), "p1", domain.RolePartner)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.registry.Unregister(connName(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, _ = f.dispatcher.Dispatch(domain.Event{Kind: domain.KindProductUpdated, Full: productPayload()})
		}
	}()
	wg.Wait()

	for i := 0; i < 50; i++ {
		for _, ch := range []domain.Channel{domain.ChannelPartners, domain.PartnerChannel("p1")} {
			require.NotContains(t, f.router.Resolve(ch), connName(i))
		}
	}
}

func connName(i int) string {
	return "conn-" + string(rune('A'+i%26)) + string(rune('a'+i/26))
}

func TestDispatcher_ProjectRedactsTypedNestedValues(t *testing.T) {
	type lineItem struct {
		SKU       string  `json:"sku"`
		CostBasis float64 `json:"costBasis"`
	}

	tests := []struct {
		name  string
		full  domain.Payload
		field string
	}{
		{"payload slice", domain.Payload{"products": []domain.Payload{{"id": "p1", "costBasis": 4.2}}}, "products"},
		{"string map", domain.Payload{"meta": map[string]string{"createdBy": "admin-7", "source": "erp"}}, "meta"},
		{"tagged struct", domain.Payload{"item": lineItem{SKU: "a", CostBasis: 4.2}}, "item"},
		{"struct slice", domain.Payload{"items": []lineItem{{SKU: "a", CostBasis: 1}, {SKU: "b", CostBasis: 2}}}, "items"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newDispatchFixture()

			proj, err := f.dispatcher.Project(domain.Event{Kind: domain.KindProductBulkUpdated, Full: tc.full})
			require.NoError(t, err)

			require.NotContains(t, string(proj.Redacted), "costBasis")
			require.NotContains(t, string(proj.Redacted), "createdBy")
			require.Contains(t, string(proj.Redacted), `"`+tc.field+`"`)
			require.Regexp(t, `costBasis|createdBy`, string(proj.Full))
		})
	}
}

func TestDispatcher_ProjectRejectsUnencodablePayload(t *testing.T) {
	f := newDispatchFixture()

	_, err := f.dispatcher.Project(domain.Event{Kind: domain.KindProductUpdated, Full: domain.Payload{"bad": make(chan int)}})
	require.Error(t, err)
}

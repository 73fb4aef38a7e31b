package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

type stubReader struct {
	got domain.Identity
	err error
}

func (s *stubReader) Pull(_ context.Context, who domain.Identity, payload json.RawMessage) (any, error) {
	s.got = who
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"echo": json.RawMessage(payload)}, nil
}

var testIdentities = stubResolver{identities: map[string]domain.Identity{
	"tok-admin": {UserID: "a1", Role: domain.RoleAdmin},
	"tok-p1":    {UserID: "p1", Role: domain.RolePartner},
	"tok-p2":    {UserID: "p2", Role: domain.RolePartner},
	"tok-bad":   {UserID: "x", Role: "supplier"},
}}

func newTestCore(t *testing.T, opts Options) (*Core, *fakeTransport) {
	t.Helper()
	if opts.Identities == nil {
		opts.Identities = testIdentities
	}
	c := NewCore(opts, zerolog.Nop())
	tr := newFakeTransport()
	require.NoError(t, c.Initialize(context.Background(), tr))
	t.Cleanup(c.Close)
	return c, tr
}

func handshake(tr *fakeTransport, connID, token string) {
	tr.onConnect(connID)
	tr.onMessage(connID, []byte(`{"type":"authenticate","token":"`+token+`"}`))
}

func TestCore_InitializeTwice(t *testing.T) {
	c, _ := newTestCore(t, Options{})

	err := c.Initialize(context.Background(), newFakeTransport())

	require.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestCore_OnEventBeforeInitialize(t *testing.T) {
	c := NewCore(Options{Identities: testIdentities}, zerolog.Nop())

	err := c.OnEvent(domain.Event{Kind: domain.KindProductCreated, Full: productPayload()})

	require.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestCore_OnEventRejectsMalformed(t *testing.T) {
	c, _ := newTestCore(t, Options{})

	tests := []struct {
		name  string
		event domain.Event
	}{
		{name: "missing kind", event: domain.Event{Full: productPayload()}},
		{name: "unknown kind", event: domain.Event{Kind: "stock_alert"}},
		{name: "order without target", event: domain.Event{Kind: domain.KindOrderCreated}},
		{name: "notification without target", event: domain.Event{Kind: domain.KindNotification}},
		{name: "bad channel", event: domain.Event{Kind: domain.KindNotification, Targets: []domain.Channel{"everyone"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, c.OnEvent(tc.event), domain.ErrMalformedEvent)
		})
	}
}

func TestCore_HandshakeJoinsRoleChannels(t *testing.T) {
	req := require.New(t)
	c, tr := newTestCore(t, Options{})

	handshake(tr, "c1", "tok-admin")
	handshake(tr, "c2", "tok-p1")

	got := tr.envelopes("c1")
	req.Len(got, 1)
	req.Equal(domain.MsgAuthenticated, got[0].Type)
	req.Equal([]any{"admin"}, got[0].Data["channels"])

	got = tr.envelopes("c2")
	req.Len(got, 1)
	req.ElementsMatch([]any{"partners", "partner:p1"}, got[0].Data["channels"])

	req.Equal(Stats{Connections: RoleCounts{Admin: 1, Partner: 1}}, c.Stats())
}

func TestCore_HandshakeFailures(t *testing.T) {
	tests := []struct {
		name    string
		message string
		code    string
	}{
		{name: "unknown token", message: `{"type":"authenticate","token":"nope"}`, code: "auth_failed"},
		{name: "missing token", message: `{"type":"authenticate"}`, code: "auth_failed"},
		{name: "invalid role", message: `{"type":"authenticate","token":"tok-bad"}`, code: "auth_failed"},
		{name: "not json", message: `hello`, code: "bad_message"},
		{name: "unknown type", message: `{"type":"subscribe"}`, code: "bad_message"},
		{name: "sync before auth", message: `{"type":"sync_request"}`, code: "unauthenticated"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			c, tr := newTestCore(t, Options{})

			tr.onConnect("c1")
			tr.onMessage("c1", []byte(tc.message))

			got := tr.envelopes("c1")
			req.Len(got, 1)
			req.Equal(domain.MsgError, got[0].Type)
			req.Equal(tc.code, got[0].Data["code"])
			req.Equal(RoleCounts{Unauthenticated: 1}, c.Stats().Connections)
		})
	}
}

func TestCore_LogoutUnregistersAndCloses(t *testing.T) {
	req := require.New(t)
	c, tr := newTestCore(t, Options{})
	handshake(tr, "c2", "tok-p1")

	tr.onMessage("c2", []byte(`{"type":"logout"}`))

	req.Equal([]string{"c2"}, tr.closed)
	req.Equal(RoleCounts{}, c.Stats().Connections)
	req.NoError(c.OnEvent(domain.Event{Kind: domain.KindProductCreated, Full: productPayload()}))
	req.Equal(1, tr.count("c2"))
}

func TestCore_SyncRequest(t *testing.T) {
	t.Run("no reader configured", func(t *testing.T) {
		_, tr := newTestCore(t, Options{})
		handshake(tr, "c2", "tok-p1")

		tr.onMessage("c2", []byte(`{"type":"sync_request","payload":{"since":"2026-01-01T00:00:00Z"}}`))

		got := tr.envelopes("c2")
		require.Len(t, got, 2)
		require.Equal(t, domain.MsgError, got[1].Type)
		require.Equal(t, "sync_unavailable", got[1].Data["code"])
	})

	t.Run("delegates to reader", func(t *testing.T) {
		reader := &stubReader{}
		_, tr := newTestCore(t, Options{Reader: reader})
		handshake(tr, "c2", "tok-p1")

		tr.onMessage("c2", []byte(`{"type":"sync_request","payload":{"since":"x"}}`))

		got := tr.envelopes("c2")
		require.Len(t, got, 2)
		require.Equal(t, domain.MsgSyncResponse, got[1].Type)
		require.Equal(t, map[string]any{"since": "x"}, got[1].Data["echo"])
		require.Equal(t, domain.Identity{UserID: "p1", Role: domain.RolePartner}, reader.got)
	})

	t.Run("reader error", func(t *testing.T) {
		_, tr := newTestCore(t, Options{Reader: &stubReader{err: errors.New("db timeout")}})
		handshake(tr, "c2", "tok-p1")

		tr.onMessage("c2", []byte(`{"type":"sync_request"}`))

		got := tr.envelopes("c2")
		require.Len(t, got, 2)
		require.Equal(t, "sync_failed", got[1].Data["code"])
	})
}

func TestCore_DisconnectDuringSession(t *testing.T) {
	req := require.New(t)
	c, tr := newTestCore(t, Options{})
	handshake(tr, "c1", "tok-admin")

	tr.onDisconnect("c1")
	tr.onDisconnect("c1")

	req.Equal(RoleCounts{}, c.Stats().Connections)
	req.NoError(c.OnEvent(domain.Event{Kind: domain.KindProductCreated, Full: productPayload()}))
	req.Equal(1, tr.count("c1"))
}

func TestCore_AdminSeesInternalFieldsPartnerDoesNot(t *testing.T) {
	req := require.New(t)

	// Given an admin and a partner
	c, tr := newTestCore(t, Options{})
	handshake(tr, "c1", "tok-admin")
	handshake(tr, "c2", "tok-p1")

	// When a product update targets both audiences
	err := c.OnEvent(domain.Event{
		Kind:    domain.KindProductUpdated,
		Full:    productPayload(),
		Targets: []domain.Channel{domain.ChannelAdmin, domain.ChannelPartners},
	})
	req.NoError(err)

	// Then both receive it, shaped for their role
	admin := tr.envelopes("c1")
	req.Len(admin, 2)
	req.Equal("product_updated", admin[1].Type)
	req.Equal(9.75, admin[1].Data["costBasis"])

	partner := tr.envelopes("c2")
	req.Len(partner, 2)
	req.Equal("product_updated", partner[1].Type)
	req.NotContains(partner[1].Data, "costBasis")
	req.Equal("Espresso beans 1kg", partner[1].Data["name"])
}

func TestCore_OrderUpdateReachesOnlyOwningPartner(t *testing.T) {
	req := require.New(t)

	c, tr := newTestCore(t, Options{})
	handshake(tr, "c1", "tok-admin")
	handshake(tr, "c2", "tok-p1")
	handshake(tr, "c3", "tok-p2")

	err := c.OnEvent(domain.Event{
		Kind:    domain.KindOrderUpdated,
		Full:    domain.Payload{"id": "ord-1", "status": "packed", "internalNotes": "fragile"},
		Targets: []domain.Channel{domain.ChannelAdmin, domain.PartnerChannel("p1")},
	})
	req.NoError(err)

	req.Equal(2, tr.count("c1"))
	req.Equal(2, tr.count("c2"))
	req.Equal(1, tr.count("c3"), "p2 must only have its handshake reply")
	req.NotContains(tr.envelopes("c2")[1].Data, "internalNotes")
}

func TestCore_FailedPartnerIsQueuedAdminStillDelivered(t *testing.T) {
	req := require.New(t)

	c, tr := newTestCore(t, Options{})
	handshake(tr, "c1", "tok-admin")
	handshake(tr, "c2", "tok-p1")
	tr.failAlways("c2")

	err := c.OnEvent(domain.Event{Kind: domain.KindProductUpdated, Full: productPayload()})
	req.NoError(err)

	req.Equal(2, tr.count("c1"))
	pending := c.retries.Pending()
	req.Len(pending, 1)
	req.Equal(domain.ChannelPartners, pending[0].Channel)
	req.Zero(pending[0].Attempts)
	req.Equal(1, c.Stats().RetryDepth)

	// Once the socket recovers a manual flush delivers the event.
	tr.heal("c2")
	res, ran := c.FlushRetries(context.Background())
	req.True(ran)
	req.Equal(TickResult{Delivered: 1}, res)
	req.Equal(2, tr.count("c2"))
}

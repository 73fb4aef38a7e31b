package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
)

var errSocketClosed = errors.New("socket closed")

// fakeTransport records sends and lets tests fail individual connections.
type fakeTransport struct {
	mu     sync.Mutex
	sent   map[string][][]byte
	fail   map[string]int // conn id → remaining failures (-1 = always)
	closed []string

	onConnect    func(string)
	onMessage    func(string, []byte)
	onDisconnect func(string)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent: make(map[string][][]byte),
		fail: make(map[string]int),
	}
}

func (f *fakeTransport) Send(connID string, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.fail[connID]; ok && n != 0 {
		if n > 0 {
			f.fail[connID] = n - 1
		}
		return errSocketClosed
	}
	f.sent[connID] = append(f.sent[connID], msg)
	return nil
}

func (f *fakeTransport) Close(connID string) {
	f.mu.Lock()
	f.closed = append(f.closed, connID)
	f.mu.Unlock()
}

func (f *fakeTransport) OnConnect(fn func(string)) { f.onConnect = fn }
func (f *fakeTransport) OnMessage(fn func(string, []byte)) { f.onMessage = fn }
func (f *fakeTransport) OnDisconnect(fn func(string)) { f.onDisconnect = fn }
func (f *fakeTransport) failAlways(connID string) { f.setFail(connID, -1) }
func (f *fakeTransport) failTimes(connID string, n int) { f.setFail(connID, n) }
func (f *fakeTransport) heal(connID string) { f.setFail(connID, 0) }

func (f *fakeTransport) setFail(connID string, n int) {
	f.mu.Lock()
	f.fail[connID] = n
	f.mu.Unlock()
}

func (f *fakeTransport) count(connID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[connID])
}

// envelopes decodes everything sent to connID.
func (f *fakeTransport) envelopes(connID string) []decodedEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]decodedEnvelope, 0, len(f.sent[connID]))
	for _, raw := range f.sent[connID] {
		var e decodedEnvelope
		if err := json.Unmarshal(raw, &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

type decodedEnvelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type stubResolver struct {
	identities map[string]domain.Identity
}

func (s stubResolver) ResolveIdentity(_ context.Context, token string) (domain.Identity, error) {
	who, ok := s.identities[token]
	if !ok {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return who, nil
}

type recordingDrops struct {
	mu      sync.Mutex
	dropped []ports.DroppedBroadcast
	err     error
}

func (r *recordingDrops) RecordDrop(_ context.Context, d ports.DroppedBroadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, d)
	return r.err
}

func productPayload() domain.Payload {
	return domain.Payload{
		"id":         "prod-1",
		"name":       "Espresso beans 1kg",
		"price":      18.5,
		"stock":      120,
		"costBasis":  9.75,
		"createdBy":  "admin-7",
		"adminNotes": "supplier renegotiation pending",
	}
}

// Package realtime pushes product and order changes to connected admin and
// partner clients.
//
// A connection starts unauthenticated in the Registry. The authenticate
// handshake promotes it to a role, and the Router places it in that role's
// channels:
//
//	admin    → admin
//	partner  → partners, partner:<userID>
//
// Events enter through Core.OnEvent. The Dispatcher projects each event into
// a full and a redacted envelope exactly once, resolves the target channels
// and sends to every member. Failed sends become retry items that the
// RetryQueue re-attempts on a fixed interval, up to a bounded number of
// attempts, after which they are dropped and recorded.
//
// Delivery is best effort and at most once per attempt. No ordering is
// guaranteed across events, and pending retries do not survive a restart.
package realtime

// Package subscription implements the registry of hub callback addresses.
//
// A hub subscribes by sending SUBSCRIBE with a Callback header to the status
// endpoint. The registry stores the callback address together with an
// expiration instant of now + TTL (24 hours by default). Subscribing the same
// address again overwrites its expiration; addresses are never duplicated.
//
// # Active Subscribers
//
// ActiveSubscribers(now) returns the addresses whose expiration is strictly
// after now. The query is read-only.
//
// # Lifecycle
//
// Entries are never removed. An expired address stays in the map and is
// simply skipped until it subscribes again. Subscriptions do not survive a
// restart.
package subscription

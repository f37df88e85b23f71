// Package chat implements the live-chat relay for the storefront: a
// WebSocket event protocol connecting store visitors (authenticated users
// and anonymous guests) with the pool of admin operators.
//
// The implementation is organized into specialized files: the hub owns the
// event loop and all mutable chat state, the dispatcher interprets protocol
// events, and the registry, store, and room files hold the admin set, the
// conversation table, and room membership respectively. Clients, rate
// limiting, HTTP routing, and configuration each live in their own file to
// keep the package maintainable as it grows.
package chat

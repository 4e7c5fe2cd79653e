// Package mocks provides gomock implementations of the auth ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockSessionStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "sid").Return(sess, nil)
package mocks

// Generate mock for SessionStore interface from internal/ports package.
// This creates MockSessionStore with methods: Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/casgate/internal/ports SessionStore

// Generate mock for TicketLedger interface from internal/ports package.
// This creates MockTicketLedger with methods: Claim
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ticket_ledger_mock.go github.com/target/casgate/internal/ports TicketLedger

// Generate mock for RetryMarkers interface from internal/ports package.
// This creates MockRetryMarkers with methods: Mark
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=retry_markers_mock.go github.com/target/casgate/internal/ports RetryMarkers

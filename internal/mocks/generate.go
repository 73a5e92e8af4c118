// Package mocks provides mock implementations for testing the session auth layer.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockSessionRepository(ctrl)
//	repo.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, nil)
package mocks

// Generate mock for SessionRepository interface from internal/ports package.
// This creates MockSessionRepository with methods for all SessionRepository interface methods:
// Save, Search, Remove, PurgeCreatedBefore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_repository_mock.go github.com/target/sessionauth/internal/ports SessionRepository

// Generate mock for SessionStore interface from internal/ports package.
// This creates MockSessionStore with methods for all SessionStore interface methods:
// Create, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/sessionauth/internal/ports SessionStore

// Generate mock for UserStore interface from internal/ports package.
// This creates MockUserStore with methods for all UserStore interface methods:
// Get
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_store_mock.go github.com/target/sessionauth/internal/ports UserStore

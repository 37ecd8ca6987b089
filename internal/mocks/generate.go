// Package mocks provides mock implementations for testing the session engine.
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
//	mockTransport := mocks.NewMockTransport(ctrl)
//	mockTransport.EXPECT().Call(gomock.Any(), gomock.Any()).Return(&ports.Response{Status: 200}, nil)
package mocks

// Generate mock for Transport interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=transport_mock.go github.com/vaultline/session-engine/internal/ports Transport

// Generate mock for ViewInvalidator interface from internal/ports package.
// Used with gomock.InOrder to assert invalidation ordering.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=view_invalidator_mock.go github.com/vaultline/session-engine/internal/ports ViewInvalidator

// Generate mock for BiometricVerifier interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=biometric_verifier_mock.go github.com/vaultline/session-engine/internal/ports BiometricVerifier

// Generate mock for CredentialStore interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/vaultline/session-engine/internal/ports CredentialStore

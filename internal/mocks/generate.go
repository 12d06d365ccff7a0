// Package mocks provides gomock implementations of the hexagonal ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().FetchGuildMembership(gomock.Any(), "42").Return(membership, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/clanhall/gatekeeper/internal/ports IdentityProvider

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=member_store_mock.go github.com/clanhall/gatekeeper/internal/ports MemberStore

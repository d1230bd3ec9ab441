// Package mocks provides generated mock implementations for testing the
// fetch engine.
//
// The mocks are generated with go.uber.org/mock (gomock). To regenerate after
// interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mocks for the Fetcher and FetcherResolver ports from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=fetcher_mock.go github.com/repofetch/repofetch/internal/core Fetcher,FetcherResolver

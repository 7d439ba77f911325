package domain

import (
	"context"
	"io"
)

// Provider translates uniform call parameters into a concrete upstream request.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderID

	// Build resolves the outbound request. It performs no I/O.
	Build(params *CallParams) (*OutboundRequest, error)
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by id.
	Get(ctx context.Context, id ProviderID) (Provider, error)

	// List returns all registered provider ids.
	List(ctx context.Context) ([]ProviderID, error)
}

// Forwarder executes outbound requests against the network.
type Forwarder interface {
	// Forward performs a buffered call and normalizes the outcome.
	// Only request validation failures are returned as errors.
	Forward(ctx context.Context, req *OutboundRequest) (*GatewayResult, error)

	// Open performs a call whose body is read incrementally by the caller.
	// Non-2xx responses are returned as *UpstreamError, transport failures as *NetworkError.
	Open(ctx context.Context, req *OutboundRequest) (io.ReadCloser, error)
}

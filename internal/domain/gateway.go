package domain

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/davidbz/hearth/internal/observability"
)

// GatewayService orchestrates provider translation and forwarding.
type GatewayService struct {
	registry  ProviderRegistry
	forwarder Forwarder
}

// NewGatewayService creates a new gateway service (DI constructor).
func NewGatewayService(registry ProviderRegistry, forwarder Forwarder) *GatewayService {
	return &GatewayService{
		registry:  registry,
		forwarder: forwarder,
	}
}

// Build resolves call parameters into an outbound request without touching the network.
func (g *GatewayService) Build(ctx context.Context, params *CallParams) (*OutboundRequest, error) {
	if params == nil {
		return nil, errors.New("call params cannot be nil")
	}

	id, err := g.resolveProvider(ctx, params)
	if err != nil {
		return nil, err
	}

	provider, err := g.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := provider.Build(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", id, err)
	}

	return req, nil
}

// Call builds and forwards a provider request in one step.
func (g *GatewayService) Call(ctx context.Context, params *CallParams) (*GatewayResult, error) {
	req, err := g.Build(ctx, params)
	if err != nil {
		return nil, err
	}

	return g.Forward(ctx, req)
}

// Forward relays a pre-built request. Upstream and network failures are
// reported through the result, not the error.
func (g *GatewayService) Forward(ctx context.Context, req *OutboundRequest) (*GatewayResult, error) {
	if req == nil {
		return nil, ErrMissingTarget
	}

	result, err := g.forwarder.Forward(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("forward failed: %w", err)
	}

	return result, nil
}

// OpenStream starts a streaming upstream call. The caller owns the returned body.
func (g *GatewayService) OpenStream(ctx context.Context, req *OutboundRequest) (io.ReadCloser, error) {
	if req == nil {
		return nil, ErrMissingTarget
	}

	body, err := g.forwarder.Open(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	return body, nil
}

// resolveProvider picks the provider for a call. An explicit base URL without a
// provider id is treated as a custom endpoint.
func (g *GatewayService) resolveProvider(ctx context.Context, params *CallParams) (ProviderID, error) {
	if params.Provider == "" {
		if params.BaseURL == "" {
			return "", &ConfigurationError{Field: "provider"}
		}
		return ProviderCustom, nil
	}

	id, err := ParseProviderID(string(params.Provider))
	if err != nil {
		return "", err
	}

	if id != ProviderCustom && params.BaseURL != "" {
		observability.FromContext(ctx).Debug("ignoring base url for fixed provider",
			observability.String("provider", string(id)))
	}

	return id, nil
}

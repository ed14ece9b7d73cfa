package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/imagegen"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/providers/fal"
)

// QueueClient is the provider transport the gateway drives.
type QueueClient interface {
	Submit(ctx context.Context, modelID string, arguments any) (*fal.Handle, error)
	Await(ctx context.Context, h fal.Handle) (json.RawMessage, error)
	Status(ctx context.Context, h fal.Handle, withLogs bool) (*fal.QueueStatus, error)
}

// Editor submits an edit and waits for its normalized result.
type Editor interface {
	Submit(ctx context.Context, payload imagegen.Payload, prompt string) (*Handle, error)
	AwaitResult(ctx context.Context, h *Handle) (*Result, error)
}

// Handle identifies a request accepted by the provider.
type Handle struct {
	Profile   string
	RequestID string
	queue     fal.Handle
}

// Gateway submits edits for one model profile. It never retries.
type Gateway struct {
	profile Profile
	client  QueueClient
	logger  infra.Logger
}

func newGateway(profile Profile, client QueueClient, logger infra.Logger) *Gateway {
	return &Gateway{profile: profile, client: client, logger: logger.With().Str("model", profile.Name).Logger()}
}

// Profile returns the configuration this gateway submits with.
func (g *Gateway) Profile() Profile {
	return g.profile
}

// Submit shapes the request for the profile and hands it to the provider.
func (g *Gateway) Submit(ctx context.Context, payload imagegen.Payload, prompt string) (*Handle, error) {
	if strings.TrimSpace(payload.DataURI) == "" {
		return nil, newProviderError("submit", g.profile.Name, errors.New("image payload is empty"))
	}
	args := g.profile.Arguments(payload.DataURI, prompt)
	queued, err := g.client.Submit(ctx, g.profile.ModelID, args)
	if err != nil {
		return nil, newProviderError("submit", g.profile.Name, err)
	}
	g.logger.Info().
		Str("request_id", queued.RequestID).
		Int("payload_bytes", payload.Size).
		Msg("provider: request submitted")
	return &Handle{Profile: g.profile.Name, RequestID: queued.RequestID, queue: *queued}, nil
}

// AwaitResult blocks until the provider answers and normalizes the payload.
func (g *Gateway) AwaitResult(ctx context.Context, h *Handle) (*Result, error) {
	if h == nil {
		return nil, newProviderError("await", g.profile.Name, errors.New("handle is required"))
	}
	raw, err := g.client.Await(ctx, h.queue)
	if err != nil {
		return nil, newProviderError("await", g.profile.Name, err)
	}
	url, err := NormalizeResult(raw)
	if err != nil {
		g.logger.Warn().Err(err).Str("request_id", h.RequestID).Msg("provider: unrecognised result payload")
		return nil, err
	}
	return &Result{URL: url, ExternalRequestID: h.RequestID, Raw: raw}, nil
}

// Status reports the provider queue state of a request, including its logs.
func (g *Gateway) Status(ctx context.Context, h *Handle) (*fal.QueueStatus, error) {
	if h == nil {
		return nil, newProviderError("status", g.profile.Name, errors.New("handle is required"))
	}
	status, err := g.client.Status(ctx, h.queue, true)
	if err != nil {
		return nil, newProviderError("status", g.profile.Name, fmt.Errorf("request %s: %w", h.RequestID, err))
	}
	return status, nil
}

var _ Editor = (*Gateway)(nil)

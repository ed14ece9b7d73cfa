package image

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
)

// Registry resolves logical profile names to gateways.
//
// It is built once at process start and passed to its consumers. Gateways
// are created lazily on first use and cached for the life of the process,
// so every caller asking for the same name shares one instance.
type Registry struct {
	client      QueueClient
	logger      infra.Logger
	defaultName string
	profiles    map[string]Profile

	mu       sync.Mutex
	gateways map[string]*Gateway
}

// NewRegistry validates the profiles and the default name.
func NewRegistry(client QueueClient, defaultName string, logger infra.Logger, profiles ...Profile) (*Registry, error) {
	if client == nil {
		return nil, fmt.Errorf("registry: queue client is required")
	}
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	byName := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate profile %s", p.Name)
		}
		byName[p.Name] = p
	}
	defaultName = strings.TrimSpace(defaultName)
	if defaultName == "" {
		defaultName = ProfileSeedream
	}
	if _, ok := byName[defaultName]; !ok {
		return nil, fmt.Errorf("registry: default profile %q: %w", defaultName, ErrUnknownProfile)
	}
	return &Registry{
		client:      client,
		logger:      logger,
		defaultName: defaultName,
		profiles:    byName,
		gateways:    make(map[string]*Gateway),
	}, nil
}

// DefaultName is the profile used when a caller does not pick one.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Resolve maps a requested name to a registered profile name. Empty selects
// the default.
func (r *Registry) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.defaultName, nil
	}
	if _, ok := r.profiles[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return name, nil
}

// Names lists the registered profile names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Gateway returns the cached gateway for name, creating it on first use.
func (r *Registry) Gateway(name string) (*Gateway, error) {
	resolved, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if gw, ok := r.gateways[resolved]; ok {
		return gw, nil
	}
	gw := newGateway(r.profiles[resolved], r.client, r.logger)
	r.gateways[resolved] = gw
	r.logger.Info().Str("model", resolved).Str("model_id", gw.Profile().ModelID).Msg("provider: gateway initialised")
	return gw, nil
}

// Editor is Gateway behind the Editor interface.
func (r *Registry) Editor(name string) (Editor, error) {
	gw, err := r.Gateway(name)
	if err != nil {
		return nil, err
	}
	return gw, nil
}

package provider

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Discovery lists models across the providers of a registry.
type Discovery struct {
	Registry *Registry
	Logger   log.FieldLogger
}

// NewDiscovery creates a Discovery over r using the standard logger.
func NewDiscovery(r *Registry) *Discovery {
	return &Discovery{Registry: r, Logger: log.StandardLogger()}
}

// ForProvider instantiates the named provider and lists its models.
func (d *Discovery) ForProvider(ctx context.Context, name string, cfg Config) ([]ModelDescriptor, error) {
	p, err := d.Registry.Create(name, cfg)
	if err != nil {
		return nil, err
	}
	return p.ListModels(ctx)
}

// All lists the models of every registered provider that has a
// configuration with an API key. Providers
// are queried concurrently; one that fails is logged and skipped. Each
// descriptor's provider field is set to the registry name. Results are
// grouped by provider name in sorted order.
func (d *Discovery) All(ctx context.Context, configs map[string]Config) []ModelDescriptor {
	regs := d.Registry.Registrations()
	results := make([][]ModelDescriptor, len(regs))

	var wg sync.WaitGroup
	for i, reg := range regs {
		cfg, ok := configs[reg.Name]
		if !ok || cfg.APIKey == "" {
			continue
		}
		wg.Add(1)
		go func(i int, name string, cfg Config) {
			defer wg.Done()
			models, err := d.listSafely(ctx, name, cfg)
			if err != nil {
				d.logger().WithField("provider", name).Warnf("Failed to get models for provider %s: %v", name, err)
				return
			}
			for j := range models {
				models[j].Provider = name
			}
			results[i] = models
		}(i, reg.Name, cfg)
	}
	wg.Wait()

	var all []ModelDescriptor
	for _, models := range results {
		all = append(all, models...)
	}
	return all
}

func (d *Discovery) listSafely(ctx context.Context, name string, cfg Config) (models []ModelDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while listing models: %v", r)
		}
	}()
	return d.ForProvider(ctx, name, cfg)
}

func (d *Discovery) logger() log.FieldLogger {
	if d.Logger == nil {
		return log.StandardLogger()
	}
	return d.Logger
}

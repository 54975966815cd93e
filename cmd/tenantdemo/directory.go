package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// directory is the YAML tenant list served by the static provider.
type directory struct {
	Tenants []struct {
		ID      uuid.UUID `yaml:"id"`
		Name    string    `yaml:"name"`
		Aliases []string  `yaml:"aliases"`
	} `yaml:"tenants"`
}

// loadProvider returns a static provider for the tenants listed in path,
// or the id provider when path is empty.
func loadProvider(path string) (tenant.Provider, error) {
	if path == "" {
		return tenant.NewIDProvider(), nil
	}

	var d directory
	if err := config.LoadFile(path, &d); err != nil {
		return nil, err
	}

	p := tenant.NewStaticProvider()
	for i, t := range d.Tenants {
		if t.ID == uuid.Nil {
			return nil, fmt.Errorf("%s: tenant #%d has no id", path, i+1)
		}
		p.Add(tenant.New(t.ID, t.Name), t.Aliases...)
	}
	return p, nil
}

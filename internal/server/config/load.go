package config

import (
	"fmt"

	"github.com/yndnr/meshbbs-go/internal/infra/confloader"
)

// Load returns Default overlaid with the file at path (if any) and MESHBBS_
// variables, after Verify accepts it.
func Load(path string) (*ServerConfig, error) {
	cfg := Default()
	if err := confloader.Load(cfg, confloader.WithFile(path)); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

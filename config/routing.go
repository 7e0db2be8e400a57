package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// routingFile is the on-disk shape of ROUTING_CONFIG_FILE:
//
//	long_threshold: 4000
//	catalog: [gemini-2.5-pro, gemini-1.5-pro, gemini-2.5-flash, gemini-1.5-flash, gemini-pro]
//	orders:
//	  long:  [gemini-2.5-pro, gemini-1.5-pro, gemini-2.5-flash, gemini-1.5-flash, gemini-pro]
//	  short: [gemini-2.5-flash, gemini-1.5-flash, gemini-2.5-pro, gemini-1.5-pro, gemini-pro]
type routingFile struct {
	LongThreshold *int     `yaml:"long_threshold"`
	Catalog       []string `yaml:"catalog"`
	Orders        struct {
		Long  []string `yaml:"long"`
		Short []string `yaml:"short"`
	} `yaml:"orders"`
}

// LoadFile merges a YAML routing file into the config.
// Values already set through the environment take precedence.
func (r *RoutingConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return r.merge(data)
}

func (r *RoutingConfig) merge(data []byte) error {
	var file routingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse routing file: %w", err)
	}

	if _, set := os.LookupEnv("ROUTING_LONG_THRESHOLD"); !set && file.LongThreshold != nil {
		r.LongThreshold = *file.LongThreshold
	}
	if len(r.Catalog) == 0 {
		r.Catalog = file.Catalog
	}
	if len(r.LongOrder) == 0 {
		r.LongOrder = file.Orders.Long
	}
	if len(r.ShortOrder) == 0 {
		r.ShortOrder = file.Orders.Short
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ServiceMode names a long-running component of the engine process.
type ServiceMode string

const (
	// ServiceModeHTTP runs the local UI server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTokenWatch re-validates the stored credential on an interval.
	ServiceModeTokenWatch ServiceMode = "tokenwatch"
)

// ValidServiceModes lists every mode in start order.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeTokenWatch}
}

func validModeNames() string {
	names := make([]string, 0, 2)
	for _, m := range ValidServiceModes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// ParseServices reads a comma-separated SERVICES value. Names are case-insensitive,
// blanks and repeats are ignored, and an unknown name fails the whole value.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	if strings.TrimSpace(servicesStr) == "" {
		return map[ServiceMode]bool{}, errors.New("at least one service must be specified")
	}

	services := make(map[ServiceMode]bool)
	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		if !slices.Contains(ValidServiceModes(), mode) {
			return nil, fmt.Errorf("invalid service name: %q (valid options: %s)", name, validModeNames())
		}
		services[mode] = true
	}
	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

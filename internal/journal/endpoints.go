package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Endpoints maps each upstream route to its path template. "{id}" and
// "{feed}" placeholders are substituted per request.
type Endpoints struct {
	Volumes         string `yaml:"volumes"`
	VolumeDetail    string `yaml:"volume_detail"`
	Recommendations string `yaml:"recommendations"`
	Homepage        string `yaml:"homepage"`
	Status          string `yaml:"status"`
	CacheStatus     string `yaml:"cache_status"`
	Health          string `yaml:"health"`
	Root            string `yaml:"root"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Volumes:         "/volumes",
		VolumeDetail:    "/volumes-no-filter/{id}",
		Recommendations: "/admin/recommendations/{id}",
		Homepage:        "/admin/homepage/{feed}",
		Status:          "/status",
		CacheStatus:     "/admin/cache-status",
		Health:          "/health",
		Root:            "/",
	}
}

// endpointsFile is the on-disk layout of the endpoints config.
type endpointsFile struct {
	Endpoints Endpoints `yaml:"endpoints"`
}

// LoadEndpoints reads an endpoints YAML file. Routes missing from the file
// keep their defaults.
func LoadEndpoints(configPath string) (Endpoints, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to read endpoints config: %w", err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Endpoints{}, fmt.Errorf("failed to parse endpoints config: %w", err)
	}

	merged := DefaultEndpoints().merge(file.Endpoints)
	if err := merged.Validate(); err != nil {
		return Endpoints{}, err
	}
	return merged, nil
}

// FindEndpointsConfig searches for endpoints.yaml in common locations
func FindEndpointsConfig() string {
	locations := []string{
		"endpoints.yaml",
		"../endpoints.yaml",
		"config/endpoints.yaml",
		"/app/endpoints.yaml",
	}

	if envPath := os.Getenv("ENDPOINTS_CONFIG_PATH"); envPath != "" {
		locations = append([]string{envPath}, locations...)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

func (e Endpoints) merge(override Endpoints) Endpoints {
	pick := func(def, over string) string {
		if strings.TrimSpace(over) != "" {
			return strings.TrimSpace(over)
		}
		return def
	}
	return Endpoints{
		Volumes:         pick(e.Volumes, override.Volumes),
		VolumeDetail:    pick(e.VolumeDetail, override.VolumeDetail),
		Recommendations: pick(e.Recommendations, override.Recommendations),
		Homepage:        pick(e.Homepage, override.Homepage),
		Status:          pick(e.Status, override.Status),
		CacheStatus:     pick(e.CacheStatus, override.CacheStatus),
		Health:          pick(e.Health, override.Health),
		Root:            pick(e.Root, override.Root),
	}
}

// Validate checks that templated routes carry their placeholder.
func (e Endpoints) Validate() error {
	checks := []struct {
		name, path, placeholder string
	}{
		{"volume_detail", e.VolumeDetail, "{id}"},
		{"recommendations", e.Recommendations, "{id}"},
		{"homepage", e.Homepage, "{feed}"},
	}
	for _, c := range checks {
		if !strings.Contains(c.path, c.placeholder) {
			return fmt.Errorf("endpoint %s (%q) is missing %s", c.name, c.path, c.placeholder)
		}
	}
	return nil
}

func (e Endpoints) volumeDetailPath(issueID int) string {
	return strings.ReplaceAll(e.VolumeDetail, "{id}", fmt.Sprint(issueID))
}

func (e Endpoints) recommendationsPath(publicationID int) string {
	return strings.ReplaceAll(e.Recommendations, "{id}", fmt.Sprint(publicationID))
}

func (e Endpoints) homepagePath(feed Feed) string {
	return strings.ReplaceAll(e.Homepage, "{feed}", string(feed))
}

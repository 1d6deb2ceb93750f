package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
	promconfig "github.com/prometheus/common/config"
	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
)

// TokenEnvVar overrides the apiToken read from the config file
const TokenEnvVar = "DYNATRACE_API_TOKEN"

// MinMemoryHeadroom is the floor applied to the memory headroom multiplier
const MinMemoryHeadroom = 1.3

var windowPattern = regexp.MustCompile(`^\d+[dh]$`)

// EmptyNamespacePolicy decides what a namespace-scoped query does when a
// namespace returns no rows
type EmptyNamespacePolicy string

const (
	EmptyNamespaceFail EmptyNamespacePolicy = "fail"
	EmptyNamespaceSkip EmptyNamespacePolicy = "skip"
)

// Config holds application configuration
type Config struct {
	// Dynatrace
	Endpoint string            `yaml:"endpoint" json:"endpoint"`
	APIToken promconfig.Secret `yaml:"apiToken" json:"apiToken"`
	Timeout  model.Duration    `yaml:"timeout" json:"timeout"`

	// Scope
	Namespaces           []string                       `yaml:"namespaces" json:"namespaces"`
	Tags                 []string                       `yaml:"tags" json:"tags"`
	ScopeByNamespace     bool                           `yaml:"scopeByNamespace" json:"scopeByNamespace"`
	EmptyNamespacePolicy EmptyNamespacePolicy           `yaml:"emptyNamespacePolicy" json:"emptyNamespacePolicy"`
	Selectors            map[models.MetricType][]string `yaml:"selectors" json:"selectors,omitempty"`
	TimeWindow           string                         `yaml:"timeWindow" json:"timeWindow"`

	// Analysis
	Percentile                      int     `yaml:"percentile" json:"percentile"`
	CPUHeadroomMultiplier           float64 `yaml:"cpuHeadroomMultiplier" json:"cpuHeadroomMultiplier"`
	MemoryHeadroomMultiplier        float64 `yaml:"memoryHeadroomMultiplier" json:"memoryHeadroomMultiplier"`
	CPUOverProvisionedThreshold     float64 `yaml:"cpuOverProvisionedThreshold" json:"cpuOverProvisionedThreshold"`
	CPUUnderProvisionedThreshold    float64 `yaml:"cpuUnderProvisionedThreshold" json:"cpuUnderProvisionedThreshold"`
	MemoryOverProvisionedThreshold  float64 `yaml:"memoryOverProvisionedThreshold" json:"memoryOverProvisionedThreshold"`
	MemoryUnderProvisionedThreshold float64 `yaml:"memoryUnderProvisionedThreshold" json:"memoryUnderProvisionedThreshold"`
	MinReplicaFloor                 int     `yaml:"minReplicaFloor" json:"minReplicaFloor"`

	// Output
	OutputPath string `yaml:"outputPath" json:"outputPath"`
}

// Overrides carries command line values that take precedence over the file
type Overrides struct {
	Window     string
	OutputPath string
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		TimeWindow:                      "7d",
		Percentile:                      90,
		CPUHeadroomMultiplier:           1.1,
		MemoryHeadroomMultiplier:        MinMemoryHeadroom,
		CPUOverProvisionedThreshold:     0.6,
		CPUUnderProvisionedThreshold:    0.9,
		MemoryOverProvisionedThreshold:  0.6,
		MemoryUnderProvisionedThreshold: 0.9,
		MinReplicaFloor:                 2,
		OutputPath:                      "./report.html",
		EmptyNamespacePolicy:            EmptyNamespaceFail,
	}
}

// Load reads a YAML or JSON config file, applies overrides and the token
// environment variable, then validates the result.
func Load(path string, overrides Overrides) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}

	cfg := NewConfig()
	if err := decode(raw, absPath, cfg); err != nil {
		return nil, fmt.Errorf("invalid config format in %s: %w", absPath, err)
	}

	if overrides.Window != "" {
		cfg.TimeWindow = overrides.Window
	}
	if overrides.OutputPath != "" {
		cfg.OutputPath = overrides.OutputPath
	}
	if token := strings.TrimSpace(getEnv(TokenEnvVar, "")); token != "" {
		cfg.APIToken = promconfig.Secret(token)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw []byte, path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(raw, cfg)
	}

	// An empty document leaves cfg untouched; reject it like a non-object
	var probe map[string]any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return err
	}
	if probe == nil {
		return fmt.Errorf("expected a mapping at document root")
	}
	return yaml.Unmarshal(raw, cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidationError lists every problem found in a configuration
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if u, err := url.Parse(c.Endpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		addf("endpoint must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.APIToken == "" {
		addf("apiToken is required in config file unless %s is set", TokenEnvVar)
	}
	if time.Duration(c.Timeout) < 0 {
		addf("timeout must not be negative")
	}

	if len(c.Namespaces) == 0 {
		addf("at least one namespace is required")
	}
	for _, ns := range c.Namespaces {
		if msgs := validation.IsDNS1123Label(ns); len(msgs) > 0 {
			addf("namespace %q: %s", ns, strings.Join(msgs, ", "))
		}
	}

	switch c.EmptyNamespacePolicy {
	case EmptyNamespaceFail, EmptyNamespaceSkip:
	default:
		addf("emptyNamespacePolicy must be %q or %q, got %q", EmptyNamespaceFail, EmptyNamespaceSkip, c.EmptyNamespacePolicy)
	}

	known := sets.New(models.AllMetricTypes...)
	for metric, selectors := range c.Selectors {
		if !known.Has(metric) {
			addf("selectors: unknown metric type %q", metric)
		}
		if len(selectors) == 0 {
			addf("selectors.%s must list at least one selector", metric)
		}
	}

	if !windowPattern.MatchString(c.TimeWindow) {
		addf("timeWindow must match %s, got %q", windowPattern, c.TimeWindow)
	}

	if c.Percentile < 50 || c.Percentile > 99 {
		addf("percentile must be between 50 and 99, got %d", c.Percentile)
	}
	if c.CPUHeadroomMultiplier < 1 {
		addf("cpuHeadroomMultiplier must be >= 1, got %.2f", c.CPUHeadroomMultiplier)
	}
	if c.MemoryHeadroomMultiplier < MinMemoryHeadroom {
		addf("memoryHeadroomMultiplier must be >= %.1f, got %.2f", MinMemoryHeadroom, c.MemoryHeadroomMultiplier)
	}
	checkRange := func(name string, v, lo, hi float64) {
		if v < lo || v > hi {
			addf("%s must be between %.1f and %.1f, got %.2f", name, lo, hi, v)
		}
	}
	checkRange("cpuOverProvisionedThreshold", c.CPUOverProvisionedThreshold, 0.1, 0.9)
	checkRange("cpuUnderProvisionedThreshold", c.CPUUnderProvisionedThreshold, 0.5, 1.0)
	checkRange("memoryOverProvisionedThreshold", c.MemoryOverProvisionedThreshold, 0.1, 0.9)
	checkRange("memoryUnderProvisionedThreshold", c.MemoryUnderProvisionedThreshold, 0.5, 1.0)
	if c.MinReplicaFloor < 1 {
		addf("minReplicaFloor must be >= 1, got %d", c.MinReplicaFloor)
	}

	if c.OutputPath == "" {
		addf("outputPath must not be empty")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// WindowDuration converts the time window into a duration
func (c *Config) WindowDuration() time.Duration {
	d, err := model.ParseDuration(c.TimeWindow)
	if err != nil {
		return 0
	}
	return time.Duration(d)
}

// EffectiveMemoryHeadroom applies the memory headroom floor
func (c *Config) EffectiveMemoryHeadroom() float64 {
	if c.MemoryHeadroomMultiplier < MinMemoryHeadroom {
		return MinMemoryHeadroom
	}
	return c.MemoryHeadroomMultiplier
}

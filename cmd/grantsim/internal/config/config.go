// Package config loads grantsim scenario files and resolves their runtime
// settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/grant/pkg/grant"
)

// DefaultFile is the scenario LoadOptional looks for.
const DefaultFile = "grantsim.yaml"

// SupportedSchema is the scenario schema major version this build reads.
const SupportedSchema = "v1"

// Environment variables that override the scenario's store and logging.
const (
	EnvStore     = "GRANT_STORE"
	EnvStorePath = "GRANT_STORE_PATH"
	EnvRedisAddr = "GRANT_REDIS_ADDR"
	EnvLogLevel  = "GRANT_LOG_LEVEL"
)

// Store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Step actions.
const (
	ActionRequest          = "request"
	ActionConfirmRationale = "confirm_rationale"
	ActionConfirmSettings  = "confirm_settings"
	ActionDismiss          = "dismiss"
	ActionRefresh          = "refresh"
	ActionSetStatus        = "set_status"
	ActionRestart          = "restart"
)

// Scenario is a scripted permission session.
type Scenario struct {
	Schema      string           `yaml:"schema"`
	Name        string           `yaml:"name,omitempty"`
	Group       bool             `yaml:"group,omitempty"`
	Permissions []PermissionSpec `yaml:"permissions"`
	// Initial is the status each permission starts with. Missing entries
	// are not_determined.
	Initial map[string]string `yaml:"initial,omitempty"`
	// Results are the answers the simulated system dialog gives, in order.
	Results  map[string][]string `yaml:"results,omitempty"`
	Messages Messages            `yaml:"messages,omitempty"`
	Policy   string              `yaml:"policy,omitempty"`
	Resume   bool                `yaml:"resume_after_rationale,omitempty"`
	Store    StoreConfig         `yaml:"store,omitempty"`
	Steps    []Step              `yaml:"steps"`
}

// PermissionSpec names a catalog permission or describes a custom one. In
// YAML it is either a bare identifier or a mapping.
type PermissionSpec struct {
	ID      string   `yaml:"id"`
	Android []string `yaml:"android,omitempty"`
	IOSKey  string   `yaml:"ios_key,omitempty"`
}

// UnmarshalYAML accepts "camera" as shorthand for {id: camera}.
func (p *PermissionSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.ID = node.Value
		return nil
	}
	type plain PermissionSpec
	return node.Decode((*plain)(p))
}

// Permission returns the grant.Permission p describes.
func (p PermissionSpec) Permission() grant.Permission {
	if len(p.Android) > 0 || p.IOSKey != "" {
		return grant.NewCustom(p.ID, p.Android, p.IOSKey)
	}
	return grant.Lookup(p.ID)
}

// Messages are the dialog texts keyed by permission identifier.
type Messages struct {
	Rationale map[string]string `yaml:"rationale,omitempty"`
	Settings  map[string]string `yaml:"settings,omitempty"`
}

// StoreConfig selects where dialog state is persisted.
type StoreConfig struct {
	Backend   string `yaml:"backend,omitempty"`
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// Step is one user or system action.
type Step struct {
	Action     string `yaml:"action"`
	Permission string `yaml:"permission,omitempty"`
	Status     string `yaml:"status,omitempty"`
}

// Resolved is a validated scenario with environment overrides applied.
type Resolved struct {
	Path     string
	Scenario *Scenario
	Store    StoreConfig
	LogLevel slog.Level
}

// Load reads and parses the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// Parse parses a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return &sc, nil
}

// LoadOptional reads grantsim.yaml from dir. A missing file yields nil and
// no error.
func LoadOptional(dir string) (*Scenario, error) {
	sc, err := Load(filepath.Join(dir, DefaultFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return sc, err
}

// Resolve loads the scenario at path, validates it and applies the
// environment overrides. lookup is usually os.LookupEnv.
func Resolve(path string, lookup func(string) (string, bool)) (*Resolved, error) {
	sc, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	r := &Resolved{Path: path, Scenario: sc, Store: sc.Store, LogLevel: slog.LevelInfo}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		r.Store.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		r.Store.Path = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		r.Store.RedisAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := r.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
		}
	}
	if r.Store.Backend == "" {
		r.Store.Backend = StoreMemory
	}
	if err := r.Store.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the scenario for unknown values and impossible setups.
func (sc *Scenario) Validate() error {
	if !semver.IsValid(sc.Schema) {
		return fmt.Errorf("invalid schema version %q", sc.Schema)
	}
	if semver.Major(sc.Schema) != SupportedSchema {
		return fmt.Errorf("unsupported schema %s (want %s.x)", sc.Schema, SupportedSchema)
	}
	if len(sc.Permissions) == 0 {
		return errors.New("no permissions declared")
	}
	if !sc.Group && len(sc.Permissions) > 1 {
		return errors.New("several permissions need group: true")
	}

	declared := make(map[string]bool, len(sc.Permissions))
	for _, p := range sc.Permissions {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("permission with empty id")
		}
		if declared[p.ID] {
			return fmt.Errorf("permission %q declared twice", p.ID)
		}
		declared[p.ID] = true
	}
	for id, s := range sc.Initial {
		if !declared[id] {
			return fmt.Errorf("initial: unknown permission %q", id)
		}
		if _, ok := grant.ParseStatus(s); !ok {
			return fmt.Errorf("initial: invalid status %q for %s", s, id)
		}
	}
	for id, results := range sc.Results {
		if !declared[id] {
			return fmt.Errorf("results: unknown permission %q", id)
		}
		for _, s := range results {
			if _, ok := grant.ParseStatus(s); !ok {
				return fmt.Errorf("results: invalid status %q for %s", s, id)
			}
		}
	}
	switch sc.Policy {
	case "", "unless_fresh", "after_attempt":
	default:
		return fmt.Errorf("unknown policy %q", sc.Policy)
	}

	for i, st := range sc.Steps {
		switch st.Action {
		case ActionRequest, ActionConfirmRationale, ActionConfirmSettings,
			ActionDismiss, ActionRefresh, ActionRestart:
		case ActionSetStatus:
			if !declared[st.Permission] {
				return fmt.Errorf("step %d: unknown permission %q", i+1, st.Permission)
			}
			if _, ok := grant.ParseStatus(st.Status); !ok {
				return fmt.Errorf("step %d: invalid status %q", i+1, st.Status)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return nil
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case StoreNone, StoreMemory:
	case StoreFile, StoreSQLite:
		if s.Path == "" {
			return fmt.Errorf("store %s needs a path (%s)", s.Backend, EnvStorePath)
		}
	case StoreRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("store redis needs an address (%s)", EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unknown store backend %q", s.Backend)
	}
	return nil
}

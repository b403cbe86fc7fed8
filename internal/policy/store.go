package policy

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// UseDefault marks a policy without its own passing score; the verifier then
// applies the settings default.
const UseDefault = -1.0

type Policy struct {
	PassingScore float64
}

type rawPolicy struct {
	PassingScore *float64 `mapstructure:"passing_score" validate:"omitempty,lte=1"`
}

type rawPolicyConfig struct {
	Default rawPolicy            `mapstructure:"default"`
	Actions map[string]rawPolicy `mapstructure:"actions" validate:"dive"`
}

// Store maps v3 actions to passing scores.
type Store struct {
	global  Policy
	actions map[string]Policy
}

// NewStore builds a store from in-memory values. Actions missing from the map
// fall back to def.
func NewStore(def Policy, actions map[string]Policy) *Store {
	cp := make(map[string]Policy, len(actions))
	for k, v := range actions {
		cp[k] = v
	}
	return &Store{global: def, actions: cp}
}

func (ps *Store) PolicyFor(action string) (Policy, bool) {
	if ps == nil {
		return Policy{PassingScore: UseDefault}, false
	}
	if policy, ok := ps.actions[action]; ok {
		return policy, true
	}
	return ps.global, false
}

// Actions returns the configured action names.
func (ps *Store) Actions() []string {
	names := make([]string, 0, len(ps.actions))
	for name := range ps.actions {
		names = append(names, name)
	}
	return names
}

// Loader returns the latest store for a policy file, reloading when the file changes.
type Loader struct {
	path string

	mu      sync.Mutex
	store   *Store
	modTime time.Time
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Current() (*Store, error) {
	if strings.TrimSpace(l.path) == "" {
		return nil, fmt.Errorf("captcha policy path must be set")
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("could not stat captcha policy config: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil && info.ModTime().Equal(l.modTime) {
		return l.store, nil
	}

	store, err := load(l.path)
	if err != nil {
		return nil, err
	}
	l.store = store
	l.modTime = info.ModTime()
	return store, nil
}

func load(path string) (*Store, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("could not parse captcha policy config: %w", err)
	}

	var cfg rawPolicyConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("could not decode captcha policy config: %w", err)
	}
	return build(cfg)
}

func build(cfg rawPolicyConfig) (*Store, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid captcha policy config: %w", err)
	}
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("captcha policy requires at least one action")
	}

	base := Policy{PassingScore: UseDefault}
	if cfg.Default.PassingScore != nil {
		base.PassingScore = *cfg.Default.PassingScore
	}
	actions := make(map[string]Policy, len(cfg.Actions))
	for name, raw := range cfg.Actions {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("captcha policy action name cannot be empty")
		}
		p := base
		if raw.PassingScore != nil {
			p.PassingScore = *raw.PassingScore
		}
		actions[name] = p
	}

	return &Store{
		global:  base,
		actions: actions,
	}, nil
}

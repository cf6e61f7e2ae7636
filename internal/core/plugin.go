package core

import "sort"

// Plugin contributes extra tick rules that run after the built-in transitions.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules  []Rule
	params map[string]string
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{params: make(map[string]string)}
}

// RegisterRule adds a tick rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// DescribeParameter documents a plugin-specific parameter so callers can list
// what a plugin reads.
func (r *PluginRegistry) DescribeParameter(name, description string) {
	if name == "" {
		return
	}
	r.params[name] = description
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Parameters returns a copy of the documented parameters.
func (r *PluginRegistry) Parameters() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name       string
	Version    string
	Rules      []string
	Parameters map[string]string
}

func sortPluginMetadata(items []PluginMetadata) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}

package profile

// Provider holds the full profile set for a scan, grouped by arch marker in
// declaration order.
type Provider struct {
	profiles []*Profile
	byKey    map[string][]*Profile
	keys     []string
}

// NewProvider builds all profiles from their configs. Any invalid config
// fails the whole set; a scan never starts with a partially built profile
// list.
func NewProvider(configs []Config) (*Provider, error) {
	pr := &Provider{byKey: make(map[string][]*Profile)}
	for _, cfg := range configs {
		p, err := New(cfg)
		if err != nil {
			return nil, err
		}
		pr.profiles = append(pr.profiles, p)
		if _, ok := pr.byKey[p.Key()]; !ok {
			pr.keys = append(pr.keys, p.Key())
		}
		pr.byKey[p.Key()] = append(pr.byKey[p.Key()], p)
	}
	return pr, nil
}

// Profiles returns every profile in declaration order.
func (pr *Provider) Profiles() []*Profile { return pr.profiles }

// Keys returns the distinct arch markers in first-seen order.
func (pr *Provider) Keys() []string { return pr.keys }

// ByKey returns the profiles sharing the given arch marker.
func (pr *Provider) ByKey(key string) []*Profile { return pr.byKey[key] }

// ResetCaches clears the scan-scoped caches of every profile.
func (pr *Provider) ResetCaches() {
	for _, p := range pr.profiles {
		p.ResetCaches()
	}
}

package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several livegraph
// deployments can share one cache (the cache.prefix setting).
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns inner (or the default keyer when nil) with prefix
// prepended to its keys. An empty prefix returns inner unchanged.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	if prefix == "" {
		return inner
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey prefixes the inner layout key.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}

// StatsKey prefixes the inner metric report key.
func (k *ScopedKeyer) StatsKey(graphHash, metricID string, subset []string) string {
	return k.prefix + k.inner.StatsKey(graphHash, metricID, subset)
}

package config

import "time"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// ViewCacheConfig controls the read-view cache that mutations invalidate.
type ViewCacheConfig struct {
	Store StoreKind     `env:"VIEW_CACHE"     envDefault:"memory"`
	TTL   time.Duration `env:"VIEW_CACHE_TTL" envDefault:"5m"`
}

// Sanitize applies guardrails to view cache configuration values.
func (v *ViewCacheConfig) Sanitize() {
	if v.Store == "" {
		v.Store = StoreMemory
	}
	if v.TTL <= 0 {
		v.TTL = 5 * time.Minute
	}
}

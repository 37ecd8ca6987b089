package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/session-engine/config"
)

const redisPingTimeout = 5 * time.Second

// RedisConnConfig contains configuration for the Redis connection.
type RedisConnConfig struct {
	Redis  config.RedisConfig
	Logger *slog.Logger
}

type redisTopology string

const (
	topologyDirect   redisTopology = "direct"
	topologySentinel redisTopology = "sentinel"
	topologyCluster  redisTopology = "cluster"
)

// redisTarget is a resolved connection plan. Addresses in it never carry credentials,
// so it can be logged as is.
type redisTarget struct {
	topology redisTopology
	opts     redis.UniversalOptions
}

func (t redisTarget) String() string {
	if t.topology == topologySentinel {
		return string(t.topology) + ":" + t.opts.MasterName
	}
	return string(t.topology) + ":" + strings.Join(t.opts.Addrs, ",")
}

// ConnectRedis resolves the configured topology, connects and pings once.
//
//nolint:ireturn // the topology decides between single, sentinel and cluster clients at runtime.
func ConnectRedis(cfg RedisConnConfig) (redis.UniversalClient, error) {
	target, err := resolveRedisTarget(cfg.Redis)
	if err != nil {
		return nil, err
	}
	client := target.client()

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "target", target.String(), "db", target.opts.DB)
	}
	return client, nil
}

//nolint:ireturn // see ConnectRedis.
func (t redisTarget) client() redis.UniversalClient {
	switch t.topology {
	case topologyCluster:
		return redis.NewClusterClient(t.opts.Cluster())
	case topologySentinel:
		return redis.NewFailoverClient(t.opts.Failover())
	default:
		return redis.NewClient(t.opts.Simple())
	}
}

// resolveRedisTarget turns RedisConfig into a connection plan. Cluster wins over
// sentinel; credentials embedded in a redis:// URI win over REDIS_PASSWORD.
func resolveRedisTarget(cfg config.RedisConfig) (redisTarget, error) {
	switch {
	case cfg.UseCluster:
		return clusterTarget(cfg)
	case cfg.UseSentinel:
		return sentinelTarget(cfg)
	default:
		return directTarget(cfg)
	}
}

func directTarget(cfg config.RedisConfig) (redisTarget, error) {
	ep, err := parseEndpoint(cfg.URI, cfg.Password)
	if err != nil {
		return redisTarget{}, err
	}
	if ep.addr == "" {
		return redisTarget{}, errors.New("redis direct configuration requires a URI")
	}
	db := cfg.DB
	if ep.db != nil {
		db = *ep.db
	}
	return redisTarget{topology: topologyDirect, opts: ep.options([]string{ep.addr}, db)}, nil
}

func clusterTarget(cfg config.RedisConfig) (redisTarget, error) {
	if addrs := normalizeAddrs(cfg.ClusterNodes); len(addrs) > 0 {
		ep := redisEndpoint{password: cfg.Password}
		return redisTarget{topology: topologyCluster, opts: ep.options(addrs, 0)}, nil
	}
	ep, err := parseEndpoint(cfg.URI, cfg.Password)
	if err != nil {
		return redisTarget{}, fmt.Errorf("cluster seed: %w", err)
	}
	if ep.addr == "" {
		return redisTarget{}, errors.New("redis cluster configuration requires at least one address")
	}
	return redisTarget{topology: topologyCluster, opts: ep.options([]string{ep.addr}, 0)}, nil
}

func sentinelTarget(cfg config.RedisConfig) (redisTarget, error) {
	nodes := normalizeAddrs(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return redisTarget{}, errors.New("redis sentinel configuration requires at least one sentinel node")
	}
	if strings.TrimSpace(cfg.SentinelMasterName) == "" {
		return redisTarget{}, errors.New("redis sentinel configuration requires a master name")
	}
	ep := redisEndpoint{password: cfg.Password}
	opts := ep.options(nodes, cfg.DB)
	opts.MasterName = strings.TrimSpace(cfg.SentinelMasterName)
	opts.SentinelPassword = cfg.SentinelPassword
	return redisTarget{topology: topologySentinel, opts: opts}, nil
}

// redisEndpoint is one address with the credentials that go with it.
type redisEndpoint struct {
	addr      string
	username  string
	password  string
	tlsConfig *tls.Config
	db        *int
}

func (e redisEndpoint) options(addrs []string, db int) redis.UniversalOptions {
	opts := redis.UniversalOptions{
		Addrs:    addrs,
		Username: e.username,
		Password: e.password,
		DB:       db,
	}
	if e.tlsConfig != nil {
		opts.TLSConfig = e.tlsConfig.Clone()
	}
	return opts
}

// parseEndpoint accepts a bare host:port or a redis:// / rediss:// URL.
func parseEndpoint(uri, defaultPassword string) (redisEndpoint, error) {
	trimmed := strings.TrimSpace(uri)
	ep := redisEndpoint{password: defaultPassword}
	if trimmed == "" {
		return ep, nil
	}
	if !isRedisURL(trimmed) {
		ep.addr = trimmed
		return ep, nil
	}

	opt, err := redis.ParseURL(trimmed)
	if err != nil {
		return redisEndpoint{}, fmt.Errorf("parse redis url: %w", err)
	}
	ep.addr = opt.Addr
	ep.username = opt.Username
	if opt.Password != "" {
		ep.password = opt.Password
	}
	ep.tlsConfig = opt.TLSConfig
	if hasDBPath(trimmed) {
		db := opt.DB
		ep.db = &db
	}
	return ep, nil
}

// hasDBPath reports whether a redis URL selects a database, as in redis://host/2.
func hasDBPath(u string) bool {
	rest := u[strings.Index(u, "://")+3:]
	i := strings.Index(rest, "/")
	if i < 0 {
		return false
	}
	path, _, _ := strings.Cut(rest[i+1:], "?")
	return path != ""
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

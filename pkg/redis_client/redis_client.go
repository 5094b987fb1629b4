package redis_client

import (
	"os"
	"strings"

	"github.com/go-redis/redis/v9"
)

const defaultAddr = "127.0.0.1:6379"

func getRedisAddrs() []string {
	raw := os.Getenv("REDIS_ADDR")
	if raw == "" {
		return []string{defaultAddr}
	}
	return strings.Split(raw, ",")
}

// GetRedisClients builds one client per address listed in REDIS_ADDR
// (comma separated, default 127.0.0.1:6379). Reconciler state shards
// across the returned clients by key hash.
func GetRedisClients() []*redis.Client {
	addrs := getRedisAddrs()
	rdbs := make([]*redis.Client, len(addrs))
	for i, addr := range addrs {
		rdbs[i] = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: "", // no password set
			DB:       0,  // use default DB
		})
	}
	return rdbs
}

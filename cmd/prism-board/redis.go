package main

import (
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"
)

// newRedisClient accepts a redis:// URL or an Azure style
// "host:port,password=...,ssl=True" connection string.
func newRedisClient(conn string) *redis.Client {
	opts, err := redis.ParseURL(conn)
	if err != nil {
		parts := strings.Split(conn, ",")
		opts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				continue
			}
			switch strings.ToLower(k) {
			case "password":
				opts.Password = v
			case "ssl":
				if strings.EqualFold(v, "true") {
					opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
				}
			}
		}
	}
	return redis.NewClient(opts)
}

// Package redis connects to the Redis server backing the shared tenant
// cache (see tenant.RedisCache).
//
// Config is populated from REDIS_* environment variables through
// github.com/caarlos0/env. Connect retries the initial ping so a process
// started together with its Redis container does not fail on the first try:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	cache := tenant.NewRedisCache(client, tenant.WithRedisKeyPrefix(cfg.KeyPrefix))
//	check := redis.Healthcheck(client)
//
// Errors wrap the sentinels of this package with errors.Join.
package redis

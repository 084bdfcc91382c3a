// Package redis opens go-redis clients with startup retries and exposes
// readiness and shutdown hooks for them.
//
//	client, err := redis.Open(ctx, redis.Config{URL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	checks := health.Checks{"redis": redis.Healthcheck(client)}
//	defer redis.Shutdown(client)(ctx)
//
// Errors returned by Open match ErrEmptyConnectionURL, ErrFailedToParseURL or
// ErrConnectionFailed with errors.Is.
package redis

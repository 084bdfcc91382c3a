// Package health serves liveness and readiness probes.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//		"postgres": db.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//	}, health.WithLogger(log)))
//
// Probes answer with plain text ("OK" or "Service Unavailable"). Send
// Accept: application/json or ?format=json for per-check details.
package health

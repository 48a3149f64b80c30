// Package ratelimit caps how fast a run hits upstream feed servers.
//
// Many of the sources are volunteer-run mirrors, so every outbound request
// from every worker goes through one shared Limiter:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//		return err // cancelled
//	}
package ratelimit

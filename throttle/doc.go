// Package throttle enforces per-topic rate limits and concurrency caps.
//
// The producer waits on a topic's token bucket before every publish
// attempt, and the consumer gates batch cycles on a topic's concurrency
// cap so several pollers in one process never exceed it.
//
//	m := throttle.NewManager(
//	    throttle.Config{Topic: "notifications-queue", RateLimit: 10, RateBurst: 20},
//	    throttle.Config{Topic: "execution-queue", MaxConcurrency: 2},
//	)
//
// A Config with Topic "*" applies to every topic without its own entry.
// Topics with no matching Config are never limited. Rate limiting uses
// a token bucket (golang.org/x/time/rate).
package throttle

package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Sweep transitions are bounded so shutdown never waits on a stuck pass
const SweepRunTimeout = 30 * time.Second

// Tracking payloads are tiny; anything bigger is not a tracking call
const TrackingMaxBodySize = 64 << 10

// Event data payload bounds
const (
	EventDataMaxBytes = 8 << 10
	EventDataMaxDepth = 4
	EventDataMaxKeys  = 32
)

// Sessions active within this window count as "realtime"
const RealtimeWindow = 5 * time.Minute

package config

import "time"

// Application constants
const (
	AppName     = "SimDash"
	AppVersion  = "0.4.0"
	ServiceName = "simdash"
	EnvPrefix   = "SIMDASH"

	// Server
	DefaultPort = 8080

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second

	// Action log processing
	DefaultMaxRowsToCheck = 5
	DefaultMaxRowsLimit   = 100
	ActionLogFileName     = "actions.csv"

	// File Paths
	DefaultDataDir = "data"
	DefaultLogFile = "logs/simdash.log"

	// WebSocket
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 4096
	WebSocketWriteWait       = 10 * time.Second
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second

	// Log Settings
	DefaultLogLevel = "info"

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/health"
	MetricsEndpoint = "/metrics"
	WebSocketPrefix = "/ws"
)

package config

import (
	"os"

	"github.com/joho/godotenv"
)

var (
	DebugMode bool

	WebsocketEndpoint string
	RestEndpoint      string
)

func init() {
	readEnv()
}

// Load reads the .env file (if present) and re-reads the environment.
func Load() {
	godotenv.Load()
	readEnv()
}

func readEnv() {
	DebugMode = os.Getenv("DEBUG_MODE") == "true"

	WebsocketEndpoint = getEnvOr("BITFINEX_WS_ENDPOINT", "wss://api-pub.bitfinex.com/ws")
	RestEndpoint = getEnvOr("BITFINEX_REST_ENDPOINT", "https://api.bitfinex.com/v1")
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

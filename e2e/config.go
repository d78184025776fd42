package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_GRPC_ADDR and E2E_HTTP_ADDR target a running server.
	// When both are empty the suite starts one in-process.
	GrpcAddr string `envconfig:"E2E_GRPC_ADDR"`
	HTTPAddr string `envconfig:"E2E_HTTP_ADDR"`
	// E2E_ADMIN must be listed in the server's ADMIN_USERNAMES for the impersonation scenario
	Admin string `envconfig:"E2E_ADMIN" default:"root-admin"`
	// E2E_DEBUG_JSON dumps every event received as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func (c Config) External() bool {
	return c.GrpcAddr != "" && c.HTTPAddr != ""
}

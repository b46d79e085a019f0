package api

import "time"

type Config struct {
	HTTPAddr        string        `envconfig:"WSA_HTTP_ADDR" default:"0.0.0.0:8080"`
	DBDSN           string        `envconfig:"WSA_DB_DSN" required:"true"`
	DBMaxConns      int32         `envconfig:"WSA_DB_MAX_CONNS" default:"20"`
	MetricsAddr     string        `envconfig:"WSA_METRICS_ADDR" default:"0.0.0.0:9090"`
	LogLevel        string        `envconfig:"WSA_LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"WSA_SHUTDOWN_TIMEOUT" default:"30s"`
	Migrate         bool          `envconfig:"WSA_MIGRATE" default:"true"`

	// Deployment values exposed to admins.
	EnableTerraformDebugMode bool   `envconfig:"WSA_ENABLE_TERRAFORM_DEBUG_MODE" default:"false"`
	SSHHostnamePrefix        string `envconfig:"WSA_SSH_HOSTNAME_PREFIX" default:"wsa."`
}

package builder

import "time"

type Config struct {
	DBDSN           string        `envconfig:"WSA_DB_DSN" required:"true"`
	DBMaxConns      int32         `envconfig:"WSA_DB_MAX_CONNS" default:"5"`
	MetricsAddr     string        `envconfig:"WSA_METRICS_ADDR" default:"0.0.0.0:9091"`
	GRPCAddr        string        `envconfig:"WSA_BUILDER_GRPC_ADDR" default:"0.0.0.0:7070"`
	LogLevel        string        `envconfig:"WSA_LOG_LEVEL" default:"info"`
	IdleBackoff     time.Duration `envconfig:"WSA_BUILDER_IDLE_BACKOFF" default:"2s"`
	JobTimeout      time.Duration `envconfig:"WSA_BUILDER_JOB_TIMEOUT" default:"10m"`
	StageDelay      time.Duration `envconfig:"WSA_BUILDER_STAGE_DELAY" default:"500ms"`
	ShutdownTimeout time.Duration `envconfig:"WSA_SHUTDOWN_TIMEOUT" default:"120s"`
}

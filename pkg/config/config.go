package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Settings is the engine's configuration surface, loaded from WEFT_*
// environment variables. Time-valued settings are logical milliseconds, the
// unit of message timestamps.
type Settings struct {
	EpochGranularityMs    int64    `envconfig:"EPOCH_GRANULARITY_MS" default:"1000"`
	InactivityThresholdMs int64    `envconfig:"INACTIVITY_THRESHOLD_MS" default:"5000"`
	PartitionCount        int      `envconfig:"PARTITION_COUNT" default:"4"`
	MaxSessionMessages    int      `envconfig:"MAX_SESSION_MESSAGES" default:"0"`
	TopKShapes            int      `envconfig:"TOP_K_SHAPES" default:"10"`
	SourceReorderSlackMs  int64    `envconfig:"SOURCE_REORDER_SLACK_MS" default:"1000"`
	GrpcListenAddr        string   `envconfig:"GRPC_LISTEN_ADDR" default:":4317"`
	MetricsListenAddr     string   `envconfig:"METRICS_LISTEN_ADDR" default:":9090"`
	DrainOnShutdown       bool     `envconfig:"DRAIN_ON_SHUTDOWN" default:"true"`
	ElasticsearchEnabled  bool     `envconfig:"ELASTICSEARCH_ENABLED" default:"false"`
	ElasticsearchAddrs    []string `envconfig:"ELASTICSEARCH_ADDRS" default:"http://localhost:9200"`
}

func Load() (Settings, error) {
	var settings Settings
	if err := envconfig.Process("weft", &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	if settings.PartitionCount <= 0 {
		return Settings{}, fmt.Errorf("partition count must be positive, got %d", settings.PartitionCount)
	}
	if settings.InactivityThresholdMs <= 0 {
		return Settings{}, fmt.Errorf("inactivity threshold must be positive, got %d", settings.InactivityThresholdMs)
	}
	return settings, nil
}

package app

import (
	"time"

	"github.com/yungbote/interestgraph-backend/internal/platform/envutil"
)

type Config struct {
	KafkaBrokers      []string
	ConnectRetries    int
	ConnectRetryDelay time.Duration

	PhotoGroupID          string
	InteractionGroupID    string
	RecommendationGroupID string

	HealthAddr  string
	ServiceName string
	Environment string
	Version     string
}

func LoadConfig() Config {
	return Config{
		KafkaBrokers:      envutil.StringSlice("KAFKA_BROKERS", []string{"localhost:29092"}),
		ConnectRetries:    envutil.Int("KAFKA_CONNECT_RETRIES", 10),
		ConnectRetryDelay: envutil.Duration("KAFKA_CONNECT_RETRY_DELAY", 5*time.Second),

		PhotoGroupID:          envutil.String("KAFKA_PHOTO_GROUP_ID", "image-analysis-group"),
		InteractionGroupID:    envutil.String("KAFKA_INTERACTION_GROUP_ID", "user-interaction-group"),
		RecommendationGroupID: envutil.String("KAFKA_RECOMMENDATION_GROUP_ID", "recommendation-group"),

		HealthAddr:  ":" + envutil.String("HEALTH_PORT", "8080"),
		ServiceName: envutil.String("SERVICE_NAME", "interestgraph"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	}
}

package config

import (
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FAMTREE_"

// parseEnv overlays FAMTREE_* variables. A .env file in the working
// directory is loaded first when present; it never overrides variables that
// are already set. Unparsable durations are ignored.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	_ = godotenv.Load()

	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("STORE", &config.StoreBackend)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	dur("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_CHANNEL", &config.RedisChannel)
	str("AMQP_URL", &config.AMQPURL)
	str("AMQP_EXCHANGE", &config.AMQPExchange)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	dur("PRESIGN_TTL", &config.PresignValidityDuration)
	str("LOG_LEVEL", &config.LogLevel)
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/famtree/internal/flagx"
	"github.com/dmitrijs2005/famtree/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "15m" style
// strings or integer nanoseconds. Absent fields keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	StoreBackend                *string         `json:"store_backend"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	RedisAddr                   *string         `json:"redis_addr"`
	RedisChannel                *string         `json:"redis_channel"`
	AMQPURL                     *string         `json:"amqp_url"`
	AMQPExchange                *string         `json:"amqp_exchange"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	PresignValidityDuration     *timex.Duration `json:"presign_validity_duration"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson overlays the file given with -c/-config, if any. An unreadable
// or malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisChannel, c.RedisChannel)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPExchange, c.AMQPExchange)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.PresignValidityDuration != nil {
		config.PresignValidityDuration = c.PresignValidityDuration.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

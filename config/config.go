// server/config/config.go
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// --- Các struct con, phản ánh cấu trúc của YAML ---

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type FabricConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	ChannelName          string `mapstructure:"channelName"`
	ChaincodeName        string `mapstructure:"chaincodeName"`
	OrgName              string `mapstructure:"orgName"`
	UserName             string `mapstructure:"userName"`
	ConnectionProfile    string `mapstructure:"connectionProfile"`
	UserCertPath         string `mapstructure:"userCertPath"`
	UserKeyDir           string `mapstructure:"userKeyDir"`
	WalletPath           string `mapstructure:"walletPath"`
	DiscoveryAsLocalhost bool   `mapstructure:"discoveryAsLocalhost"`
}

// LedgerConfig bounds the wait for on-chain confirmations.
type LedgerConfig struct {
	ConfirmTimeout time.Duration `mapstructure:"confirmTimeout"`
	PollInterval   time.Duration `mapstructure:"pollInterval"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type AdvisoryConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SigningConfig struct {
	KeyBits int `mapstructure:"keyBits"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"perMinute"`
	Burst     int `mapstructure:"burst"`
}

type SeedConfig struct {
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
}

// --- Struct Config chính, bao gồm tất cả các struct con ---

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Fabric    FabricConfig    `mapstructure:"fabric"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	S3        S3Config        `mapstructure:"s3"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Advisory  AdvisoryConfig  `mapstructure:"advisory"`
	Signing   SigningConfig   `mapstructure:"signing"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.dbName", "blocknex_supply")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("fabric.enabled", false)
	v.SetDefault("fabric.walletPath", "wallet")
	v.SetDefault("fabric.discoveryAsLocalhost", true)
	v.SetDefault("ledger.confirmTimeout", "120s")
	v.SetDefault("ledger.pollInterval", "2s")
	v.SetDefault("redis.ttl", "6h")
	v.SetDefault("rabbitmq.exchange", "procurement.events")
	v.SetDefault("advisory.timeout", "8s")
	v.SetDefault("signing.keyBits", 2048)
	v.SetDefault("rateLimit.perMinute", 30)
	v.SetDefault("rateLimit.burst", 5)
}

// Biến môi trường cho từng key, ví dụ "mongo.uri" -> MONGO_URI.
var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.mode":              "GIN_MODE",
	"log.level":                "LOG_LEVEL",
	"mongo.uri":                "MONGO_URI",
	"mongo.dbName":             "MONGO_DBNAME",
	"jwt.secret":               "JWT_SECRET",
	"jwt.expiration":           "JWT_EXPIRATION",
	"fabric.enabled":           "FABRIC_ENABLED",
	"fabric.connectionProfile": "FABRIC_CONNECTION_PROFILE",
	"s3.bucket":                "S3_BUCKET",
	"s3.region":                "S3_REGION",
	"s3.accessKeyID":           "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":       "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":      "S3_CLOUDFRONT_DOMAIN",
	"redis.addr":               "REDIS_URL",
	"redis.password":           "REDIS_PASSWORD",
	"rabbitmq.url":             "RABBITMQ_URL",
	"advisory.baseURL":         "ADVISORY_BASE_URL",
	"seed.adminEmail":          "SEED_ADMIN_EMAIL",
	"seed.adminPassword":       "SEED_ADMIN_PASSWORD",
}

// LoadConfig đọc cấu hình từ file và ghi đè bằng các biến môi trường.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	// Nếu file không tồn tại, chỉ dùng default và biến môi trường.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

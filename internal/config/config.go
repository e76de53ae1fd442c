package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	SNSRegion      string

	// RetryQueueURL is the SQS queue backing deferred resends. The queue's
	// visibility timeout and redrive policy supply the exponential backoff
	// and any outer retry cap.
	RetryQueueURL string

	// DeliveryEndpoint seeds the delivery_config row when it is first created.
	DeliveryEndpoint string

	// ClientLogin credentials used to fetch a fresh delivery auth token.
	ClientLoginURL    string
	ClientLoginEmail  string
	ClientLoginPasswd string
	ClientLoginSource string

	MaxDevicesPerOwner int
	RetryMaxJitter     time.Duration

	JWTPublicKeyPath  string
	JWTPrivateKeyPath string
	JWTExpiryDays     int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Devices        string
	DeliveryConfig string
	Interests      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Devices:        getEnv("DYNAMO_TABLE_DEVICES", "devices"),
			DeliveryConfig: getEnv("DYNAMO_TABLE_DELIVERY_CONFIG", "delivery_config"),
			Interests:      getEnv("DYNAMO_TABLE_INTERESTS", "interests"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "push-relay-interests"),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		RetryQueueURL: getEnv("RETRY_QUEUE_URL", ""),

		DeliveryEndpoint: getEnv("DELIVERY_ENDPOINT", "https://android.apis.google.com/c2dm/send"),

		ClientLoginURL:    getEnv("CLIENT_LOGIN_URL", "https://www.google.com/accounts/ClientLogin"),
		ClientLoginEmail:  getEnv("CLIENT_LOGIN_EMAIL", ""),
		ClientLoginPasswd: getEnv("CLIENT_LOGIN_PASSWD", ""),
		ClientLoginSource: getEnv("CLIENT_LOGIN_SOURCE", "push-relay"),

		MaxDevicesPerOwner: getEnvInt("MAX_DEVICES_PER_OWNER", 10),
		RetryMaxJitter:     getEnvDuration("RETRY_MAX_JITTER", 3*time.Second),

		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 7),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

package config

const (
	EnvPrefix = "CIVICPULSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "CIVICPULSE_APP_ENV"
	EnvPort   = "CIVICPULSE_APP_PORT"

	EnvDBDSN  = "CIVICPULSE_DB_DSN"
	EnvDBHost = "CIVICPULSE_DB_HOST"
	EnvDBUser = "CIVICPULSE_DB_USER"
	EnvDBName = "CIVICPULSE_DB_NAME"

	EnvRedisURL = "CIVICPULSE_REDIS_URL"

	EnvJWTSecret              = "CIVICPULSE_JWT_SECRET"
	EnvJWTIssuer              = "CIVICPULSE_JWT_ISSUER"
	EnvJWTExpMins             = "CIVICPULSE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CIVICPULSE_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "CIVICPULSE_GCP_PROJECT_ID"
	EnvGCSBucket    = "CIVICPULSE_GCS_BUCKET_NAME"
	EnvGCSTimeout   = "CIVICPULSE_GCS_TIMEOUT"

	EnvMediaMaxImageBytes       = "CIVICPULSE_MEDIA_MAX_IMAGE_BYTES"
	EnvMediaMaxImagesPerRequest = "CIVICPULSE_MEDIA_MAX_IMAGES_PER_REQUEST"

	EnvPubSubReportEventsTopic = "CIVICPULSE_PUBSUB_REPORT_EVENTS_TOPIC"
	EnvAllowAdminSignup        = "CIVICPULSE_FEATURE_ALLOW_ADMIN_SIGNUP"
	EnvOutboxEnabled           = "CIVICPULSE_OUTBOX_ENABLED"
	EnvCronInterval            = "CIVICPULSE_CRON_INTERVAL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const EnvPrefix = "PROCUREMENT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PROCUREMENT_APP_ENV"
	EnvPort     = "PROCUREMENT_APP_PORT"
	EnvLogLevel = "PROCUREMENT_LOG_LEVEL"
	EnvLogFmt   = "PROCUREMENT_LOG_FORMAT"

	EnvDBDSN  = "PROCUREMENT_DB_DSN"
	EnvDBHost = "PROCUREMENT_DB_HOST"
	EnvDBUser = "PROCUREMENT_DB_USER"
	EnvDBName = "PROCUREMENT_DB_NAME"

	EnvRedisURL = "PROCUREMENT_REDIS_URL"

	EnvJWTSecret  = "PROCUREMENT_JWT_SECRET"
	EnvJWTIssuer  = "PROCUREMENT_JWT_ISSUER"
	EnvJWTExpMins = "PROCUREMENT_JWT_EXPIRATION_MINUTES"

	EnvCheckoutTimeout      = "PROCUREMENT_CHECKOUT_TIMEOUT"
	EnvCheckoutGroupTimeout = "PROCUREMENT_CHECKOUT_GROUP_TIMEOUT"
	EnvCheckoutMaxParallel  = "PROCUREMENT_CHECKOUT_MAX_PARALLEL_GROUPS"

	EnvPubSubOrdersTopic = "PROCUREMENT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "PROCUREMENT_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvOutboxBatchSize       = "PROCUREMENT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts     = "PROCUREMENT_OUTBOX_MAX_ATTEMPTS"
	EnvCronSequenceRetention = "PROCUREMENT_CRON_SEQUENCE_RETENTION_DAYS"
)

// legacyDBEnvVars must all be present when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

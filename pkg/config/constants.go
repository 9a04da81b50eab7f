package config

// EnvPrefix namespaces all environment variables consumed by the service.
const EnvPrefix = "REMESAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "REMESAS_APP_ENV"
	EnvPort     = "REMESAS_APP_PORT"
	EnvDBDSN    = "REMESAS_DB_DSN"
	EnvDBHost   = "REMESAS_DB_HOST"
	EnvDBUser   = "REMESAS_DB_USER"
	EnvDBName   = "REMESAS_DB_NAME"
	EnvRedisURL = "REMESAS_REDIS_URL"

	EnvJWTSecret  = "REMESAS_JWT_SECRET"
	EnvJWTIssuer  = "REMESAS_JWT_ISSUER"
	EnvJWTExpMins = "REMESAS_JWT_EXPIRATION_MINUTES"

	EnvPayoutWebhookSecret = "REMESAS_PAYOUT_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	EnvPrefix = "LABSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "LABSTORE_APP_ENV"
	EnvPort     = "LABSTORE_APP_PORT"
	EnvLogLevel = "LABSTORE_LOG_LEVEL"

	EnvDBDSN  = "LABSTORE_DB_DSN"
	EnvDBHost = "LABSTORE_DB_HOST"
	EnvDBPort = "LABSTORE_DB_PORT"
	EnvDBUser = "LABSTORE_DB_USER"
	EnvDBPass = "LABSTORE_DB_PASSWORD"
	EnvDBName = "LABSTORE_DB_NAME"

	EnvRedisURL = "LABSTORE_REDIS_URL"

	EnvJWTSecret = "LABSTORE_JWT_SECRET"
	EnvJWTIssuer = "LABSTORE_JWT_ISSUER"

	EnvGatewayBaseURL       = "LABSTORE_GATEWAY_BASE_URL"
	EnvGatewayAPIKey        = "LABSTORE_GATEWAY_API_KEY"
	EnvGatewayWebhookSecret = "LABSTORE_GATEWAY_WEBHOOK_SECRET"

	EnvFreightBaseURL = "LABSTORE_FREIGHT_BASE_URL"

	EnvCheckoutOriginPostalCode = "LABSTORE_CHECKOUT_ORIGIN_POSTAL_CODE"
	EnvCheckoutRedirectURL      = "LABSTORE_CHECKOUT_REDIRECT_URL"
	EnvCheckoutMaxInstallments  = "LABSTORE_CHECKOUT_MAX_INSTALLMENTS"

	EnvPubSubNotificationTopic = "LABSTORE_PUBSUB_NOTIFICATION_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

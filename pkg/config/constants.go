package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "ROOMHIVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "ROOMHIVE_APP_ENV"
	EnvPort       = "ROOMHIVE_APP_PORT"
	EnvDBDSN      = "ROOMHIVE_DB_DSN"
	EnvDBHost     = "ROOMHIVE_DB_HOST"
	EnvDBUser     = "ROOMHIVE_DB_USER"
	EnvDBName     = "ROOMHIVE_DB_NAME"
	EnvRedisURL   = "ROOMHIVE_REDIS_URL"
	EnvJWTSecret  = "ROOMHIVE_JWT_SECRET"
	EnvJWTIssuer  = "ROOMHIVE_JWT_ISSUER"
	EnvGCPProject = "ROOMHIVE_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

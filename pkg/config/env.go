package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "issuance"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside envconfig tags
// (DSN assembly errors, tests).
const (
	EnvAppEnv   = "ISSUANCE_APP_ENV"
	EnvPort     = "ISSUANCE_APP_PORT"
	EnvDBDSN    = "ISSUANCE_DB_DSN"
	EnvDBHost   = "ISSUANCE_DB_HOST"
	EnvDBPort   = "ISSUANCE_DB_PORT"
	EnvDBUser   = "ISSUANCE_DB_USER"
	EnvDBName   = "ISSUANCE_DB_NAME"
	EnvDBPass   = "ISSUANCE_DB_PASSWORD"
	EnvRedisURL = "ISSUANCE_REDIS_URL"

	EnvGCPProjectID    = "ISSUANCE_GCP_PROJECT_ID"
	EnvPubSubLedgerSub = "ISSUANCE_PUBSUB_LEDGER_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

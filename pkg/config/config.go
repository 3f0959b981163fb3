package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	FeatureFlags   FeatureFlagsConfig
	Eventing       EventingConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	BigQuery       BigQueryConfig
	CSD            CSDConfig
	Reconciliation ReconciliationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ISSUANCE_APP_ENV" required:"true"`
	Port         string `envconfig:"ISSUANCE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ISSUANCE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ISSUANCE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ISSUANCE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ISSUANCE_DB_DSN"`
	Driver string `envconfig:"ISSUANCE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ISSUANCE_DB_HOST"`
	LegacyPort     int    `envconfig:"ISSUANCE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ISSUANCE_DB_USER"`
	LegacyPassword string `envconfig:"ISSUANCE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ISSUANCE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ISSUANCE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ISSUANCE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ISSUANCE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ISSUANCE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ISSUANCE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ISSUANCE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ISSUANCE_REDIS_ADDR"`
	Password     string        `envconfig:"ISSUANCE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ISSUANCE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ISSUANCE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ISSUANCE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ISSUANCE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ISSUANCE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ISSUANCE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ISSUANCE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IngestIdempotencyTTL time.Duration `envconfig:"ISSUANCE_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ISSUANCE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ISSUANCE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ISSUANCE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerSubscription string `envconfig:"ISSUANCE_PUBSUB_LEDGER_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                 string `envconfig:"ISSUANCE_BIGQUERY_DATASET" default:"issuance"`
	ReconciliationTable     string `envconfig:"ISSUANCE_BIGQUERY_RECONCILIATION_TABLE" default:"reconciliation_outcomes"`
	DisableReconcileExports bool   `envconfig:"ISSUANCE_BIGQUERY_DISABLE_RECONCILE_EXPORTS" default:"false"`
}

// CSDConfig carries one endpoint/credential pair per depository. A provider
// with a blank endpoint or API key is treated as not configured.
type CSDConfig struct {
	ClearstreamEndpoint string `envconfig:"ISSUANCE_CSD_CLEARSTREAM_ENDPOINT"`
	ClearstreamAPIKey   string `envconfig:"ISSUANCE_CSD_CLEARSTREAM_API_KEY"`
	EuroclearEndpoint   string `envconfig:"ISSUANCE_CSD_EUROCLEAR_ENDPOINT"`
	EuroclearAPIKey     string `envconfig:"ISSUANCE_CSD_EUROCLEAR_API_KEY"`
	DTCCEndpoint        string `envconfig:"ISSUANCE_CSD_DTCC_ENDPOINT"`
	DTCCAPIKey          string `envconfig:"ISSUANCE_CSD_DTCC_API_KEY"`
	DPOGlobalEndpoint   string `envconfig:"ISSUANCE_CSD_DPO_GLOBAL_ENDPOINT"`
	DPOGlobalAPIKey     string `envconfig:"ISSUANCE_CSD_DPO_GLOBAL_API_KEY"`
}

type ReconciliationConfig struct {
	MaxConcurrent int           `envconfig:"ISSUANCE_RECONCILIATION_MAX_CONCURRENT" default:"5"`
	VerifyTimeout time.Duration `envconfig:"ISSUANCE_RECONCILIATION_VERIFY_TIMEOUT" default:"30s"`
	SweepInterval time.Duration `envconfig:"ISSUANCE_RECONCILIATION_SWEEP_INTERVAL" default:"15m"`
	BatchLimit    int           `envconfig:"ISSUANCE_RECONCILIATION_BATCH_LIMIT" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

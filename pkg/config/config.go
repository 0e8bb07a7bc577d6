package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
	Pricing  PricingConfig
	Orders   OrdersConfig
	Payments PaymentsConfig
	Dispatch DispatchConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"GIFTLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"GIFTLANE_DB_DSN"`

	Host     string `envconfig:"GIFTLANE_DB_HOST"`
	Port     int    `envconfig:"GIFTLANE_DB_PORT" default:"5432"`
	User     string `envconfig:"GIFTLANE_DB_USER"`
	Password string `envconfig:"GIFTLANE_DB_PASSWORD"`
	Name     string `envconfig:"GIFTLANE_DB_NAME"`
	SSLMode  string `envconfig:"GIFTLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTLANE_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIFTLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIFTLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIFTLANE_JWT_EXPIRATION_MINUTES" default:"60"`
	GuestTTLMinutes   int    `envconfig:"GIFTLANE_GUEST_SESSION_TTL_MINUTES" default:"10080"`
}

// GuestTTL returns the guest cart session lifetime.
func (j JWTConfig) GuestTTL() time.Duration {
	if j.GuestTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.GuestTTLMinutes) * time.Minute
}

type CheckoutConfig struct {
	ReservationTTL  time.Duration `envconfig:"GIFTLANE_RESERVATION_TTL" default:"10m"`
	MaxLineQuantity int           `envconfig:"GIFTLANE_MAX_LINE_QUANTITY" default:"10"`
}

type PricingConfig struct {
	PlatformFeeCents   int     `envconfig:"GIFTLANE_PLATFORM_FEE_CENTS" default:"2000"`
	GSTRatePercent     float64 `envconfig:"GIFTLANE_GST_RATE_PERCENT" default:"18"`
	DeliveryBaseCents  int     `envconfig:"GIFTLANE_DELIVERY_BASE_CENTS" default:"4000"`
	DeliveryBaseKM     float64 `envconfig:"GIFTLANE_DELIVERY_BASE_KM" default:"5"`
	DeliveryPerKMCents int     `envconfig:"GIFTLANE_DELIVERY_PER_KM_CENTS" default:"800"`
	DeliveryMaxKM      float64 `envconfig:"GIFTLANE_DELIVERY_MAX_KM" default:"50"`
	CashbackPercent    float64 `envconfig:"GIFTLANE_CASHBACK_PERCENT" default:"2"`
}

type OrdersConfig struct {
	DesignDeadlineHours int `envconfig:"GIFTLANE_DESIGN_DEADLINE_HOURS" default:"24"`
	MaxChangeRequests   int `envconfig:"GIFTLANE_MAX_CHANGE_REQUESTS" default:"2"`
}

// DesignDeadline returns the preview SLA window applied when a
// personalized order is confirmed.
func (o OrdersConfig) DesignDeadline() time.Duration {
	if o.DesignDeadlineHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(o.DesignDeadlineHours) * time.Hour
}

type PaymentsConfig struct {
	BaseURL string `envconfig:"GIFTLANE_PAYMENTS_BASE_URL"`
	APIKey  string `envconfig:"GIFTLANE_PAYMENTS_API_KEY"`
}

type DispatchConfig struct {
	BaseURL string `envconfig:"GIFTLANE_DISPATCH_BASE_URL"`
	APIKey  string `envconfig:"GIFTLANE_DISPATCH_API_KEY"`
}

type PubSubConfig struct {
	ProjectID                string `envconfig:"GIFTLANE_GCP_PROJECT_ID"`
	OrdersTopic              string `envconfig:"GIFTLANE_PUBSUB_ORDERS_TOPIC" default:"gl-order-events"`
	NotificationTopic        string `envconfig:"GIFTLANE_PUBSUB_NOTIFICATION_TOPIC" default:"gl-notification-events"`
	NotificationSubscription string `envconfig:"GIFTLANE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GIFTLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GIFTLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GIFTLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIFTLANE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIFTLANE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"GIFTLANE_DB_HOST": db.Host,
		"GIFTLANE_DB_USER": db.User,
		"GIFTLANE_DB_NAME": db.Name,
	}
	for _, key := range []string{"GIFTLANE_DB_HOST", "GIFTLANE_DB_USER", "GIFTLANE_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either GIFTLANE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

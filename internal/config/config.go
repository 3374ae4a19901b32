package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Toss Payments settings
	TossSecretKey     string `envconfig:"TOSS_SECRET_KEY" required:"true"`
	TossWebhookSecret string `envconfig:"TOSS_WEBHOOK_SECRET" required:"true"`
	TossAPIBaseURL    string `envconfig:"TOSS_API_BASE_URL" default:"https://api.tosspayments.com"`

	// Processing service settings
	ProcessingServiceBaseURL    string `envconfig:"PROCESSING_SERVICE_BASE_URL" required:"true"`
	ProcessingRequestTimeoutSec int    `envconfig:"PROCESSING_REQUEST_TIMEOUT_SEC" default:"30"`

	// Billing ops alerting
	GCPProjectID      string `envconfig:"GCP_PROJECT_ID"`
	BillingAlertTopic string `envconfig:"BILLING_ALERT_TOPIC" default:"billing_alerts"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

// NotifxConfig configures outgoing email.
type NotifxConfig struct {
	Provider    string `env:"NOTIFX_PROVIDER" envDefault:"console"`
	FromAddress string `env:"NOTIFX_FROM_ADDRESS" envDefault:"noreply@kinglaminaat.dev"`
	FromName    string `env:"NOTIFX_FROM_NAME" envDefault:"King Laminaat"`
	AWSRegion   string `env:"NOTIFX_AWS_REGION" envDefault:"us-east-1"`
}

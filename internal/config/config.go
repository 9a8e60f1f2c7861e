package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	AppEnv         string        `mapstructure:"APP_ENV"`
	AppBaseURL     string        `mapstructure:"APP_BASE_URL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DB"`
	MongoTLS      bool   `mapstructure:"MONGO_TLS"`

	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string `mapstructure:"FIREBASE_CREDENTIALS_JSON"`
	FirebaseCredentialsFile string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`

	// JWTSecret enables HMAC bearer tokens when Firebase is not configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	SendGridAPIKey  string        `mapstructure:"SENDGRID_API_KEY"`
	InviteFromEmail string        `mapstructure:"INVITE_FROM_EMAIL"`
	InviteTimeout   time.Duration `mapstructure:"INVITE_TIMEOUT"`

	AdminEmails        []string `mapstructure:"ADMIN_EMAILS"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var keys = []string{
	"SERVER_ADDRESS", "APP_ENV", "APP_BASE_URL", "REQUEST_TIMEOUT",
	"MONGO_URI", "MONGO_DB", "MONGO_TLS",
	"FIREBASE_PROJECT_ID", "FIREBASE_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS",
	"JWT_SECRET",
	"SENDGRID_API_KEY", "INVITE_FROM_EMAIL", "INVITE_TIMEOUT",
	"ADMIN_EMAILS", "CORS_ALLOWED_ORIGINS",
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("MONGO_DB", "gospel")
	v.SetDefault("MONGO_TLS", false)
	v.SetDefault("INVITE_TIMEOUT", "30s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.AdminEmails = splitList(v.GetString("ADMIN_EMAILS"))
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.FirebaseProjectID == "" && c.JWTSecret == "" && !c.IsDevelopment() {
		return errors.New("either FIREBASE_PROJECT_ID or JWT_SECRET is required")
	}
	if c.MongoURI == "" && !c.IsDevelopment() {
		return errors.New("MONGO_URI is required outside development")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

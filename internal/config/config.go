package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultPokerRunLimit = 100

type Config struct {
	Server    ServerConfig
	Stripe    StripeConfig
	Event     EventConfig
	RowStore  RowStoreConfig
	Email     EmailConfig
	DashSheet DashSheetConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	AdminKey  string
	LogDir    string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Addr returns the listen address for Port.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type EventConfig struct {
	Name          string
	ProductName   string
	BaseFee       int64 // dollars
	PokerRunFee   int64 // dollars
	PokerRunLimit int
	Timezone      string
}

type RowStoreConfig struct {
	Driver        string // sheets, sqlite or postgres
	DSN           string
	SpreadsheetID string
	SheetName     string
	KeyFile       string
	ServiceEmail  string
	PrivateKey    string
}

type BrevoConfig struct {
	Key  string
	User string
	Host string
	Port int
}

type MailgunConfig struct {
	APIKey       string
	Domain       string
	Region       string
	SMTPUser     string
	SMTPPassword string
}

type GmailConfig struct {
	User     string
	Password string
}

type EmailConfig struct {
	Brevo       BrevoConfig
	Mailgun     MailgunConfig
	Gmail       GmailConfig
	FromAddress string
	FromName    string
	ReplyTo     string
	AdminEmail  string
}

type DashSheetConfig struct {
	PDFShiftAPIKey string
	TemplatePath   string
	LogoPath       string
	FontPath       string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topics  TopicConfig
}

type TopicConfig struct {
	Registrations string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "4242"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      getEnv("STRIPE_CURRENCY", "cad"),
		},
		Event: EventConfig{
			Name:          getEnv("EVENT_NAME", "Seaside Cruizers Car Show"),
			ProductName:   getEnv("EVENT_PRODUCT_NAME", "Seaside Cruizers Car Show Registration"),
			BaseFee:       30,
			PokerRunFee:   5,
			PokerRunLimit: PokerRunLimit(os.Getenv("POKER_RUN_MAX_LIMIT")),
			Timezone:      getEnv("EVENT_TIMEZONE", "America/Los_Angeles"),
		},
		RowStore: RowStoreConfig{
			Driver:        strings.ToLower(getEnv("ROW_STORE", "sheets")),
			DSN:           os.Getenv("ROW_STORE_DSN"),
			SpreadsheetID: os.Getenv("GOOGLE_SHEETS_ID"),
			SheetName:     getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
			KeyFile:       os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			ServiceEmail:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
			PrivateKey:    os.Getenv("GOOGLE_PRIVATE_KEY"),
		},
		Email: loadEmail(),
		DashSheet: DashSheetConfig{
			PDFShiftAPIKey: os.Getenv("PDFSHIFT_API_KEY"),
			TemplatePath:   os.Getenv("DASHSHEET_TEMPLATE"),
			LogoPath:       os.Getenv("DASHSHEET_LOGO"),
			FontPath:       getEnv("DASHSHEET_FONT", "./fonts/DejaVuSans.ttf"),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topics: TopicConfig{
				Registrations: getEnv("KAFKA_TOPIC_REGISTRATIONS", "registration.completed"),
			},
		},
		AdminKey: os.Getenv("ADMIN_KEY"),
		LogDir:   getEnv("LOG_DIR", "logs"),
	}
}

func loadEmail() EmailConfig {
	cfg := EmailConfig{
		Brevo: BrevoConfig{
			Key:  os.Getenv("BREVO_SMTP_KEY"),
			User: os.Getenv("BREVO_SMTP_USER"),
			Host: getEnv("BREVO_SMTP_HOST", "smtp-relay.brevo.com"),
			Port: getEnvInt("BREVO_SMTP_PORT", 587),
		},
		Mailgun: MailgunConfig{
			APIKey:       os.Getenv("MAILGUN_API_KEY"),
			Domain:       os.Getenv("MAILGUN_DOMAIN"),
			Region:       strings.ToLower(getEnv("MAILGUN_REGION", "us")),
			SMTPUser:     os.Getenv("MAILGUN_SMTP_USER"),
			SMTPPassword: os.Getenv("MAILGUN_SMTP_PASSWORD"),
		},
		Gmail: GmailConfig{
			User:     os.Getenv("GMAIL_USER"),
			Password: os.Getenv("GMAIL_PASS"),
		},
		FromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		FromName:    getEnv("EMAIL_FROM_NAME", "Seaside Cruizers Car Show"),
		ReplyTo:     os.Getenv("EMAIL_REPLY_TO"),
		AdminEmail:  os.Getenv("ADMIN_EMAIL"),
	}
	return cfg
}

// PokerRunLimit parses POKER_RUN_MAX_LIMIT. Empty, unparsable or
// non-positive values give the default.
func PokerRunLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return DefaultPokerRunLimit
	}
	return n
}

// SheetsConfigured reports whether the spreadsheet id and some credential are set.
func (r RowStoreConfig) SheetsConfigured() bool {
	return r.SpreadsheetID != "" && (r.KeyFile != "" || (r.ServiceEmail != "" && r.PrivateKey != ""))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

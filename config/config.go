package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// Config reads key from the environment after loading .env once.
func Config(key string) string {
	loadOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Println("No .env file found, using process environment")
		}
	})
	return os.Getenv(key)
}

type Settings struct {
	Port        string
	AppEnv      string
	CorsOrigins string
	CSRFEnabled bool

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CounterStore string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	JWTSecret     string
	JWTExpiresIn  time.Duration
	AdminEmail    string
	AdminPassword string

	OrderPrefix        string
	OrderSequenceWidth int
	Timezone           string
	CounterTimeout     time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	EmailTimeout time.Duration

	RateLimitWindow  time.Duration
	RateLimitLight   int
	RateLimitDefault int
	RateLimitOrder   int

	Public PublicSettings
}

// PublicSettings is exposed as-is on GET /api/config.
type PublicSettings struct {
	EventName    string   `json:"eventName"`
	OrderPrefix  string   `json:"orderPrefix"`
	UpiID        string   `json:"upiId"`
	UpiPayeeName string   `json:"upiPayeeName"`
	ContactEmail string   `json:"contactEmail"`
	ContactPhone string   `json:"contactPhone"`
	WhatsappLink string   `json:"whatsappLink"`
	PaymentModes []string `json:"paymentModes"`
}

func (s Settings) IsProduction() bool {
	return s.AppEnv == "production"
}

func (s Settings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName, s.DBSSLMode)
}

func Load() Settings {
	prefix := str("ORDER_PREFIX", "ONAM")
	return Settings{
		Port:        str("PORT", "5000"),
		AppEnv:      str("APP_ENV", "development"),
		CorsOrigins: str("CORS_ORIGINS", "http://localhost:5173"),
		CSRFEnabled: boolean("CSRF_ENABLED", true),

		DBHost:     str("DB_HOST", "localhost"),
		DBPort:     integer("DB_PORT", 5432),
		DBUser:     str("DB_USER", "postgres"),
		DBPassword: Config("DB_PASSWORD"),
		DBName:     str("DB_NAME", "onam"),
		DBSSLMode:  str("DB_SSLMODE", "disable"),

		CounterStore: strings.ToLower(str("COUNTER_STORE", "postgres")),

		RedisAddr:     Config("REDIS_ADDR"),
		RedisPassword: Config("REDIS_PASSWORD"),
		RedisDB:       integer("REDIS_DB", 0),

		MongoURI: Config("MONGO_URI"),
		MongoDB:  str("MONGO_DB", "onam"),

		JWTSecret:     Config("JWT_SECRET"),
		JWTExpiresIn:  duration("JWT_EXPIRES_IN", 7*24*time.Hour),
		AdminEmail:    Config("ADMIN_EMAIL"),
		AdminPassword: Config("ADMIN_PASSWORD"),

		OrderPrefix:        prefix,
		OrderSequenceWidth: integer("ORDER_SEQUENCE_WIDTH", 4),
		Timezone:           str("TIMEZONE", "Asia/Kolkata"),
		CounterTimeout:     duration("COUNTER_TIMEOUT", 3*time.Second),
		EmailTimeout:       duration("EMAIL_TIMEOUT", 30*time.Second),
		SMTPHost:           Config("SMTP_HOST"),
		SMTPPort:           integer("SMTP_PORT", 587),
		SMTPUsername:       Config("SMTP_USERNAME"),
		SMTPPassword:       Config("SMTP_PASSWORD"),
		SMTPFrom:           Config("SMTP_FROM"),
		RateLimitWindow:    duration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitLight:     integer("RATE_LIMIT_LIGHT", 300),
		RateLimitDefault:   integer("RATE_LIMIT_DEFAULT", 100),
		RateLimitOrder:     integer("RATE_LIMIT_ORDER", 10),
		Public: PublicSettings{
			EventName:    str("EVENT_NAME", "Onam Sadya"),
			OrderPrefix:  prefix,
			UpiID:        Config("UPI_ID"),
			UpiPayeeName: Config("UPI_PAYEE_NAME"),
			ContactEmail: Config("CONTACT_EMAIL"),
			ContactPhone: Config("CONTACT_PHONE"),
			WhatsappLink: Config("WHATSAPP_LINK"),
			PaymentModes: []string{"cash", "upi"},
		},
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(Config(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	v := Config(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Printf("invalid %s=%q, using %d\n", key, v, def)
		return def
	}
	return n
}

func boolean(key string, def bool) bool {
	v := Config(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		fmt.Printf("invalid %s=%q, using %t\n", key, v, def)
		return def
	}
	return b
}

func duration(key string, def time.Duration) time.Duration {
	v := Config(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Printf("invalid %s=%q, using %s\n", key, v, def)
		return def
	}
	return d
}

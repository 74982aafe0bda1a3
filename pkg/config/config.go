package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config agrupa toda la configuración del servicio, cargada del entorno.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Invitation InvitationConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
	Mail       MailConfig
}

// ServerConfig configura el servidor HTTP.
type ServerConfig struct {
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	// OpTimeout es el presupuesto de tiempo por operación de auth/webhook.
	// Al excederlo la operación falla cerrada; el proveedor reintenta.
	OpTimeout time.Duration `env:"SERVER_OP_TIMEOUT" envDefault:"5s"`

	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig configura la conexión a PostgreSQL.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"clientela"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"clientela"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN devuelve el data source name para lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig configura la conexión a Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Address devuelve la dirección host:port.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig configura sesiones y tokens.
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"clientela"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	CookieName     string        `env:"SESSION_COOKIE_NAME" envDefault:"access_token"`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"true"`
}

// InvitationConfig configura el ciclo de vida de códigos de invitación.
type InvitationConfig struct {
	// GrantCount es el tamaño del lote de códigos que recibe cada perfil
	// nuevo al aprovisionarse (emisión en cascada).
	GrantCount int `env:"INVITATION_GRANT_COUNT" envDefault:"5"`

	// CodeLength es la longitud del token aleatorio.
	CodeLength int `env:"INVITATION_CODE_LENGTH" envDefault:"16"`

	// TTL es la vigencia de los códigos emitidos en cascada.
	// Cero significa sin expiración.
	TTL time.Duration `env:"INVITATION_TTL" envDefault:"0"`
}

// RateLimitConfig configura la ventana deslizante anti fuerza bruta.
type RateLimitConfig struct {
	// Backend: "redis" o "memory".
	Backend     string        `env:"RATE_LIMIT_BACKEND" envDefault:"redis"`
	MaxAttempts int           `env:"RATE_LIMIT_MAX_ATTEMPTS" envDefault:"10"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

// WebhookConfig configura la verificación de eventos del proveedor de identidad.
type WebhookConfig struct {
	Secret          string `env:"WEBHOOK_SECRET,required"`
	SignatureHeader string `env:"WEBHOOK_SIGNATURE_HEADER" envDefault:"X-Webhook-Signature"`
}

// MailConfig configura el envío de correo.
type MailConfig struct {
	// Provider: "ses" o "console".
	Provider    string `env:"MAIL_PROVIDER" envDefault:"console"`
	FromAddress string `env:"MAIL_FROM_ADDRESS" envDefault:"no-reply@clientela.app"`
	FromName    string `env:"MAIL_FROM_NAME" envDefault:"Clientela"`
	AWSRegion   string `env:"MAIL_AWS_REGION" envDefault:"us-east-1"`

	// Outbox en Redis para despacho asíncrono.
	QueueKey     string        `env:"MAIL_QUEUE_KEY" envDefault:"clientela:mail:outbox"`
	MaxRetries   int           `env:"MAIL_MAX_RETRIES" envDefault:"3"`
	PollInterval time.Duration `env:"MAIL_POLL_INTERVAL" envDefault:"1s"`
	RetryDelay   time.Duration `env:"MAIL_RETRY_DELAY" envDefault:"30s"`
}

// Load parsea la configuración desde variables de entorno.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

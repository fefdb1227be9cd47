package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"story-server/internal/utils"
	"story-server/pkg/logger"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv string `env:"APP_ENV" env-default:"development"`
	Port   string `env:"SERVER_PORT" env-default:"8080"`

	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	LogEncoding string `env:"LOG_ENCODING" env-default:"json"`

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	AI       AIConfig
	Assets   AssetsConfig

	// Секретное поле БЕЗ env тега, загружается из Docker Secrets
	JWTSecret string

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`

	// В development режиме проверка владельца истории в голосовой сессии
	// деградирует до предупреждения вместо закрытия соединения.
	WSSkipOwnershipCheck bool `env:"WS_SKIP_OWNERSHIP_CHECK" env-default:"false"`
}

// DBConfig настройки PostgreSQL.
type DBConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     int    `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Name     string `env:"DB_NAME" env-default:"story_server"`
	SSLMode  string `env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNECTIONS" env-default:"10"`
	// Секретное поле БЕЗ env тега
	Password string
}

// RedisConfig настройки Redis для блокировок генерации.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
}

// RabbitMQConfig настройки публикации событий жизненного цикла историй.
type RabbitMQConfig struct {
	URL      string `env:"RABBITMQ_URL" env-default:""`
	Exchange string `env:"RABBITMQ_STORY_EVENTS_EXCHANGE" env-default:"story_events"`
}

// Enabled сообщает, настроена ли публикация событий.
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// AIConfig настройки внешних генеративных сервисов.
type AIConfig struct {
	// Секретное поле БЕЗ env тега
	OpenAIKey     string
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" env-default:""`

	TextModel   string `env:"AI_TEXT_MODEL" env-default:"gpt-4o-mini"`
	VisionModel string `env:"AI_VISION_MODEL" env-default:"gpt-4o-mini"`
	ImageModel  string `env:"AI_IMAGE_MODEL" env-default:"dall-e-3"`
	TTSModel    string `env:"AI_TTS_MODEL" env-default:"tts-1"`

	// Локальный Ollama как альтернативный текстовый провайдер
	OllamaHost  string `env:"OLLAMA_HOST" env-default:""`
	OllamaModel string `env:"OLLAMA_MODEL" env-default:"llama3"`

	// Резервный сервер генерации изображений
	SanaBaseURL    string `env:"SANA_SERVER_BASE_URL" env-default:""`
	SanaTimeoutSec int    `env:"SANA_SERVER_TIMEOUT_SEC" env-default:"120"`
}

// AssetsConfig настройки хранения сгенерированных файлов.
type AssetsConfig struct {
	MediaRoot     string `env:"MEDIA_ROOT" env-default:"./media"`
	PublicBaseURL string `env:"MEDIA_PUBLIC_BASE_URL" env-default:"/media"`
	FFmpegPath    string `env:"FFMPEG_PATH" env-default:"ffmpeg"`
}

// IsProduction сообщает, работает ли сервис в production окружении.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// LoggerConfig возвращает конфигурацию логгера.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:    c.LogLevel,
		Encoding: c.LogEncoding,
	}
}

// Load загружает конфигурацию из переменных окружения, .env файла и секретов.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Секреты читаем из Docker Secrets, при локальной разработке
	// допускается fallback на переменную окружения.
	cfg.DB.Password = loadSecret("db_password", "DB_PASSWORD")
	cfg.JWTSecret = loadSecret("jwt_secret", "JWT_SECRET")
	cfg.AI.OpenAIKey = loadSecret("openai_api_key", "OPENAI_API_KEY")

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	return &cfg, nil
}

func loadSecret(secretName, envName string) string {
	if v, err := utils.ReadSecret(secretName); err == nil {
		return v
	}
	return os.Getenv(envName)
}

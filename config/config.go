package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 存储所有配置信息
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	Timezone    string `mapstructure:"TIMEZONE"`
	LogDir      string `mapstructure:"LOG_DIR"`

	// 存储后端: mysql, firestore, memory
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`

	// 数据库配置
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBDebug    bool   `mapstructure:"DB_DEBUG"`

	// Firestore配置
	GCPProjectID string `mapstructure:"GCP_PROJECT"`
	GCPLocation  string `mapstructure:"GCP_LOCATION"`

	// Redis配置，REDIS_HOST 为空时使用进程内实现
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// 文本生成配置: openai, gemini, mock
	LLMProvider       string `mapstructure:"LLM_PROVIDER"`
	LLMModel          string `mapstructure:"LLM_MODEL"`
	LLMTimeoutSeconds int    `mapstructure:"LLM_TIMEOUT_SECONDS"`
	OpenAIAPIKey      string `mapstructure:"OPENAI_API_KEY"`
	OpenAIAPIEndpoint string `mapstructure:"OPENAI_API_ENDPOINT"`
	GeminiAPIKey      string `mapstructure:"GEMINI_API_KEY"`

	// JWT配置，身份由外部身份提供方签发
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`

	// 支付回调签名密钥
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	// 限流配置
	AIRateLimit      int `mapstructure:"AI_RATE_LIMIT"`
	GeneralRateLimit int `mapstructure:"GENERAL_RATE_LIMIT"`
}

var defaults = map[string]any{
	"ENVIRONMENT":         "development",
	"SERVER_PORT":         "8080",
	"FRONTEND_URL":        "",
	"TIMEZONE":            "UTC",
	"LOG_DIR":             "logs",
	"STORAGE_BACKEND":     "memory",
	"DB_HOST":             "127.0.0.1",
	"DB_PORT":             "3306",
	"DB_USER":             "root",
	"DB_PASSWORD":         "",
	"DB_NAME":             "mindmate",
	"DB_DEBUG":            false,
	"GCP_PROJECT":         "",
	"GCP_LOCATION":        "us-central1",
	"REDIS_HOST":          "",
	"REDIS_PORT":          "6379",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"LLM_PROVIDER":        "mock",
	"LLM_MODEL":           "gpt-3.5-turbo",
	"LLM_TIMEOUT_SECONDS": 20,
	"OPENAI_API_KEY":      "",
	"OPENAI_API_ENDPOINT": "",
	"GEMINI_API_KEY":      "",
	"JWT_SECRET":          "",
	"JWT_PUBLIC_KEY":      "",
	"JWT_ISSUER":          "",
	"WEBHOOK_SECRET":      "",
	"AI_RATE_LIMIT":       10,
	"GENERAL_RATE_LIMIT":  100,
}

// LoadConfig 从环境变量或配置文件加载配置
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Unmarshal 只认识已注册的键，所以每个键都要有默认值
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		// 允许配置文件不存在，此时会从环境变量中读取
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate 校验配置组合是否可用
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "mysql", "memory":
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.LLMProvider {
	case "mock":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set for the openai provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" && c.GCPProjectID == "" {
			return fmt.Errorf("GEMINI_API_KEY or GCP_PROJECT must be set for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.IsProduction() && c.JWTSecret == "" && c.JWTPublicKey == "" {
		return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY must be set in production")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location 返回统计“自然日/自然周”所用的时区
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LLMTimeout 单次文本生成调用的超时时间
func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// RedisEnabled 是否配置了Redis
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetDBConnString 返回数据库连接字符串
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// GetRedisConnString 返回Redis连接字符串
func (c *Config) GetRedisConnString() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

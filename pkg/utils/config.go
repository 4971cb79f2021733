package utils

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenv reads .env from the working directory (or TVCOMPARE_ENV_FILE)
// once. Variables already set in the environment win.
func LoadDotenv() {
	dotenvOnce.Do(func() {
		path := os.Getenv("TVCOMPARE_ENV_FILE")
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			log.Printf("load %s: %v", path, err)
		}
	})
}

func parse(cfg any) {
	LoadDotenv()
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse env config: %v", err)
	}
}

type ServerConfig struct {
	HTTPAddr        string `env:"TVCOMPARE_HTTP_ADDR" envDefault:":8080"`
	TCPAddr         string `env:"TVCOMPARE_TCP_ADDR" envDefault:":9090"`
	GinMode         string `env:"GIN_MODE" envDefault:"debug"`
	RemoteTimeoutS  int    `env:"TVCOMPARE_REMOTE_TIMEOUT_SECONDS" envDefault:"15"`
	ShutdownTimeout int    `env:"TVCOMPARE_SHUTDOWN_TIMEOUT_SECONDS" envDefault:"5"`
}

func (c ServerConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutS) * time.Second
}

func LoadServerConfig() ServerConfig {
	var cfg ServerConfig
	parse(&cfg)
	return cfg
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	// AdminPassword is the initial shared password, used only until an admin
	// changes it.
	AdminPassword string
}

type authEnv struct {
	Secret        string `env:"TVCOMPARE_JWT_SECRET" envDefault:"dev-secret-change-me"`
	Issuer        string `env:"TVCOMPARE_JWT_ISSUER" envDefault:"tvcompare"`
	TTLHours      int    `env:"TVCOMPARE_JWT_TTL_HOURS" envDefault:"24"`
	AdminPassword string `env:"TVCOMPARE_ADMIN_PASSWORD" envDefault:"admin"`
}

func LoadAuthConfig() AuthConfig {
	var e authEnv
	parse(&e)

	ttl := time.Duration(e.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return AuthConfig{
		JWTSecret:     e.Secret,
		JWTIssuer:     e.Issuer,
		JWTDuration:   ttl,
		AdminPassword: e.AdminPassword,
	}
}

type AIConfig struct {
	APIKey   string `env:"GEMINI_API_KEY"`
	Model    string `env:"TVCOMPARE_AI_MODEL" envDefault:"gemini-2.5-flash"`
	Language string `env:"TVCOMPARE_AI_LANGUAGE" envDefault:"Arabic"`
}

func LoadAIConfig() AIConfig {
	var cfg AIConfig
	parse(&cfg)
	return cfg
}

type LogConfig struct {
	Level  string `env:"TVCOMPARE_LOG_LEVEL" envDefault:"info"`
	Format string `env:"TVCOMPARE_LOG_FORMAT" envDefault:"console"` // console | json
	// File enables a rotating log file next to stdout output.
	File       string `env:"TVCOMPARE_LOG_FILE"`
	MaxSizeMB  int    `env:"TVCOMPARE_LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"TVCOMPARE_LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"TVCOMPARE_LOG_MAX_AGE_DAYS" envDefault:"14"`
}

func LoadLogConfig() LogConfig {
	var cfg LogConfig
	parse(&cfg)
	return cfg
}

type GrpcConfig struct {
	Addr string `env:"TVCOMPARE_GRPC_ADDR" envDefault:":50051"`
}

func LoadGrpcConfig() GrpcConfig {
	var cfg GrpcConfig
	parse(&cfg)
	return cfg
}

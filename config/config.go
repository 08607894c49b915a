package config

import (
	"time"

	"github.com/dunetube/dunetube/database"
)

type Config struct {
	Web     Web
	Cors    Cors
	Storage Storage
	DB      database.Config
	Redis   Redis
	Remote  Remote
	Blob    Blob
	Auth    Auth
	Preview Preview
	Rate    Rate
}

type Web struct {
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:30s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
	Address         string        `conf:"default:0.0.0.0:8000"`
}

type Cors struct {
	Origin string `conf:"default:http://localhost:3000"`
}

// Storage selects the device storage backend: memory, redis or postgres.
type Storage struct {
	Driver string `conf:"default:memory"`
	Key    string `conf:"default:dunetube.studio.courses"`
	Prefix string `conf:"default:device:"`
}

type Redis struct {
	Addr     string        `conf:"default:localhost:6379"`
	Password string        `conf:"default:,mask"`
	DB       int           `conf:"default:0"`
	CacheTTL time.Duration `conf:"default:1m"`
	Cache    bool          `conf:"default:false"`
}

type Remote struct {
	URL      string  `conf:"default:http://localhost:8080/api/"`
	PageSize int     `conf:"default:12"`
	RPS      float64 `conf:"default:20"`
	Burst    int     `conf:"default:10"`
}

// Blob selects where attachment uploads go: disk or gcs.
type Blob struct {
	Driver          string `conf:"default:disk"`
	Dir             string `conf:"default:./uploads"`
	Bucket          string
	CredentialsFile string
	MaxUpload       int64 `conf:"default:536870912"`
}

type Auth struct {
	// Tokens are author:token pairs accepted on the studio endpoints.
	Tokens []string `conf:"mask"`
}

type Preview struct {
	TTL time.Duration `conf:"default:15m"`
}

type Rate struct {
	Burst  int           `conf:"default:20"`
	RPS    float64       `conf:"default:5"`
	Expiry time.Duration `conf:"default:3m"`
}

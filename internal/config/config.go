package config

import (
	"log"
	"os"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string
	AppEnv  string // development | production
}

// Production reports whether stack traces and other internals must be
// kept out of API responses.
func (c Config) Production() bool { return c.AppEnv == "production" }

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "oakmart.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg := Config{Port: port, DBDSN: dsn, LogFile: logFile, AppEnv: env}
	log.Printf("[config] PORT=%s DB_DSN=%s APP_ENV=%s", cfg.Port, cfg.DBDSN, cfg.AppEnv)
	return cfg
}

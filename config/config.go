package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	ResendAPIKey  string
	EmailFrom     string
	AppBaseURL    string
	CookieDomain  string
	SecureCookies bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("error load env %s", err)
	}

	cfg := Config{
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
		AppBaseURL:    os.Getenv("APP_BASE_URL"),
		CookieDomain:  os.Getenv("COOKIE_DOMAIN"),
		SecureCookies: os.Getenv("COOKIE_SECURE") != "false",
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "outdoortracker"
	}
	if cfg.AppBaseURL == "" {
		cfg.AppBaseURL = "http://localhost:8080"
	}
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = "Outdoor Tracker <noreply@outdoortracker.app>"
	}
	return cfg
}

package config

import "os"

// Config holds every environment-driven setting the app needs. Values come
// from the process environment (a .env file is loaded by main before this).
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	RedisAddr   string

	Mpesa MpesaConfig
}

// MpesaConfig holds the Daraja gateway credentials and endpoints.
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
}

func Load() Config {
	return Config{
		Addr:        getenv("DUKA_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		Mpesa: MpesaConfig{
			BaseURL:        getenv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

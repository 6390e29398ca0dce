package config

import "os"

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	SendGridAPIKey          string
	EmailFromName           string
	EmailFromAddress        string
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "quillhive"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		SendGridAPIKey:          getEnv("SENDGRID_API_KEY", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Quillhive"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", "no-reply@quillhive.io"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

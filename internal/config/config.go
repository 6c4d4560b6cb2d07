/**
 * @description
 * This file handles configuration management for the newsletter service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage
 * application settings.
 */
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	FrontendURL       string `mapstructure:"FRONTEND_URL"`
	BackendURL        string `mapstructure:"BACKEND_URL"`
	DataDir           string `mapstructure:"DATA_DIR"`
	StaticDir         string `mapstructure:"STATIC_DIR"`
	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	EmailFrom         string `mapstructure:"EMAIL_FROM"`
	EmailFromName     string `mapstructure:"EMAIL_FROM_NAME"`
	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminPassword     string `mapstructure:"ADMIN_PASSWORD"`
	AdminTokenSecret  string `mapstructure:"ADMIN_TOKEN_SECRET"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("STATIC_DIR", "./build")
	viper.SetDefault("EMAIL_FROM_NAME", "RabbitHole")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("FRONTEND_URL")
	_ = viper.BindEnv("BACKEND_URL")
	_ = viper.BindEnv("DATA_DIR")
	_ = viper.BindEnv("STATIC_DIR")
	_ = viper.BindEnv("SENDGRID_API_KEY")
	_ = viper.BindEnv("EMAIL_FROM")
	_ = viper.BindEnv("EMAIL_FROM_NAME")
	_ = viper.BindEnv("ADMIN_USERNAME")
	_ = viper.BindEnv("ADMIN_PASSWORD_HASH")
	_ = viper.BindEnv("ADMIN_PASSWORD")
	_ = viper.BindEnv("ADMIN_TOKEN_SECRET")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.FrontendURL == "" {
		return nil, errors.New("FRONTEND_URL must be set")
	}
	if config.BackendURL == "" {
		return nil, errors.New("BACKEND_URL must be set")
	}
	if config.EmailFrom == "" {
		return nil, errors.New("EMAIL_FROM must be set")
	}
	if config.AdminUsername == "" {
		return nil, errors.New("ADMIN_USERNAME must be set")
	}
	if config.AdminTokenSecret == "" {
		return nil, errors.New("ADMIN_TOKEN_SECRET must be set")
	}

	// Credentials are compared against a bcrypt hash. A plaintext
	// ADMIN_PASSWORD is accepted for local development and hashed here.
	if config.AdminPasswordHash == "" {
		if config.AdminPassword == "" {
			return nil, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash ADMIN_PASSWORD: %w", err)
		}
		config.AdminPasswordHash = string(hash)
	}
	config.AdminPassword = ""

	return &config, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo service names and paths from .env
type EnvInfo struct {
	// config name
	ChatService string
	ChatClient  string

	ChatServicePort string

	// yaml dir
	ChatServiceYAMLPath string
	ChatClientYAMLPath  string

	// log dir
	ChatServiceLogPath string
	ChatClientLogPath  string
}

// EnvConfig loaded once per process
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {
		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		} else if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			ChatService: getEnv("CHAT_SERVICE", "chat_service"),
			ChatClient:  getEnv("CHAT_CLIENT", "chat_client"),

			ChatServicePort: os.Getenv("CHAT_SERVICE_PORT"),

			ChatServiceYAMLPath: getEnv("CHAT_SERVICE_YAML", "./configs"),
			ChatClientYAMLPath:  getEnv("CHAT_CLIENT_YAML", "./configs"),

			ChatServiceLogPath: os.Getenv("CHAT_SERVICE_LOG"),
			ChatClientLogPath:  os.Getenv("CHAT_CLIENT_LOG"),
		}
	})

	return envConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// LoadConfig read <configPath>/<serviceName>.yaml, expand ${ENV} placeholders and decode into T
func LoadConfig[T any](serviceName string, configPath string) (T, error) {
	var cfg T

	v := viper.New()
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}

	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return cfg, fmt.Errorf("reading raw config file: %w", err)
	}

	expandedConfig := os.ExpandEnv(string(rawConfig))
	if err := v.ReadConfig(bytes.NewBufferString(expandedConfig)); err != nil {
		return cfg, fmt.Errorf("reading expanded config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + " can't find path")
}

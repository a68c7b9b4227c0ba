package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	FleetSync FleetSyncConfig `yaml:"fleetsync"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ReminderTopicName string `yaml:"reminder_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type FleetSyncConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Префиксы ключей/каналов тенантов. Пустые значения — дефолты store'а.
	StateKeyBase       string `yaml:"state_key_base"`
	EventChannelPrefix string `yaml:"event_channel_prefix"`

	// Бэкенд снапшотов: "redis" | "postgres". Пустое значение — redis.
	SnapshotBackend string `yaml:"snapshot_backend"`

	DataHubBaseURL string `yaml:"data_hub_base_url"`
	DataHubAPIKey  string `yaml:"data_hub_api_key"`

	WorkerHTTPAddr                string `yaml:"worker_http_addr"`
	WorkerIntervalSeconds         int    `yaml:"worker_interval_seconds"`
	WorkerReminderLimitPerHour    int    `yaml:"worker_reminder_limit_per_hour"`
	WorkerReminderDelay1Seconds   int    `yaml:"worker_reminder_delay_1_seconds"`
	WorkerReminderDelay2Seconds   int    `yaml:"worker_reminder_delay_2_seconds"`
	WorkerReminderDelay3Seconds   int    `yaml:"worker_reminder_delay_3_seconds"`
	WorkerReminderMaxReminders    int    `yaml:"worker_reminder_max_reminders"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

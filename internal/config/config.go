// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"migrations"`
	RabbitMQURL             string `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries      int    `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	FreeKassa               `yaml:"freekassa"`
	ProxyProvider           `yaml:"proxy_provider"`
	MTProxy                 `yaml:"mtproxy"`
	Scheduler               `yaml:"scheduler"`
	Admin                   `yaml:"admin"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8051"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// FreeKassa структура для работы с платёжным провайдером.
type FreeKassa struct {
	APIBase           string        `yaml:"api_base" env-default:"https://api.fk.life/v1"`
	ShopID            string        `yaml:"shop_id"`
	APIKey            string        `yaml:"api_key"`
	SecretWord2       string        `yaml:"secret_word2"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env-default:"30s"`
	FeePercent        float64       `yaml:"fee_percent" env-default:"0"`
	StrictAmountCheck bool          `yaml:"strict_amount_check" env-default:"true"`
}

// ProxyProvider структура для выбора провайдера прокси-хоста.
// Provider: mock или command. Команды получают плейсхолдеры
// {login} и {password}.
type ProxyProvider struct {
	Provider          string        `yaml:"provider" env-default:"mock"`
	DefaultIP         string        `yaml:"default_ip" env-default:"127.0.0.1"`
	DefaultPort       int           `yaml:"default_port" env-default:"1080"`
	CmdCreate         string        `yaml:"cmd_create"`
	CmdUpdatePassword string        `yaml:"cmd_update_password"`
	CmdDisable        string        `yaml:"cmd_disable"`
	CmdTimeout        time.Duration `yaml:"cmd_timeout" env-default:"10s"`
}

// MTProxy структура для синхронизации секретов MTProto-прокси.
type MTProxy struct {
	SecretsFile     string        `yaml:"secrets_file" env-default:"data/mtproxy_secrets.txt"`
	ServiceName     string        `yaml:"service_name" env-default:"mtproxy.service"`
	RestartCooldown time.Duration `yaml:"restart_cooldown" env-default:"5m"`
	ControlTimeout  time.Duration `yaml:"control_timeout" env-default:"15s"`
}

// Scheduler структура с интервалами периодических задач.
type Scheduler struct {
	BillingInterval   time.Duration `yaml:"billing_interval" env-default:"1h"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env-default:"30s"`
	WatchdogInterval  time.Duration `yaml:"watchdog_interval" env-default:"1m"`
	WatchdogSilence   time.Duration `yaml:"watchdog_silence" env-default:"30m"`
}

// Admin структура с учётными данными администратора API.
type Admin struct {
	Username     string        `yaml:"username" env-default:"admin"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH, при ошибке завершает процесс.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

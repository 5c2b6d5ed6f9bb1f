package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notification string `mapstructure:"notification"`
	AuditLog     string `mapstructure:"audit_log"`
}

// BusinessConfig 业务参数统一放在配置里，代码中不写死阈值
type BusinessConfig struct {
	Currency string `mapstructure:"currency"` // 固定币种，如 TRY

	// 充值金额边界
	TopupMinAmount float64 `mapstructure:"topup_min_amount"`
	TopupMaxAmount float64 `mapstructure:"topup_max_amount"`

	// 风控规则参数
	VelocityWindowMinutes int     `mapstructure:"velocity_window_minutes"` // 频率窗口
	VelocityMaxIntents    int64   `mapstructure:"velocity_max_intents"`    // 窗口内最大意向数
	DailyCapAmount        float64 `mapstructure:"daily_cap_amount"`        // 24小时累计上限
	DailyCapWindowHours   int     `mapstructure:"daily_cap_window_hours"`

	// 可疑行为扫描
	ScanCooldownHours int `mapstructure:"scan_cooldown_hours"`
	BulkScanMaxUsers  int `mapstructure:"bulk_scan_max_users"`

	// 待支付意向超时时间
	IntentTimeoutMinutes int `mapstructure:"intent_timeout_minutes"`

	MaxRetryCount int `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}

// DefaultBusiness 测试与本地启动用的兜底业务参数
func DefaultBusiness() BusinessConfig {
	return BusinessConfig{
		Currency:              "TRY",
		TopupMinAmount:        1,
		TopupMaxAmount:        50000,
		VelocityWindowMinutes: 15,
		VelocityMaxIntents:    5,
		DailyCapAmount:        200000,
		DailyCapWindowHours:   24,
		ScanCooldownHours:     1,
		BulkScanMaxUsers:      100,
		IntentTimeoutMinutes:  30,
		MaxRetryCount:         5,
	}
}

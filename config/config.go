package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OSS       OSSConfig       `mapstructure:"oss"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Ads       AdsConfig       `mapstructure:"ads"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Email     EmailConfig     `mapstructure:"email"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

// PaymentConfig 支付网关配置（X-VERIFY 校验使用 salt key）
type PaymentConfig struct {
	MerchantID  string `mapstructure:"merchant_id"`
	SaltKey     string `mapstructure:"salt_key"`
	SaltIndex   string `mapstructure:"salt_index"`
	PayPageURL  string `mapstructure:"pay_page_url"`
	CallbackURL string `mapstructure:"callback_url"`
	SuccessCode string `mapstructure:"success_code"`
}

type AdsConfig struct {
	Plans     []AdPlan `mapstructure:"plans"`
	MaxImages int      `mapstructure:"max_images"`
}

// AdPlan 广告展示时长套餐
type AdPlan struct {
	Days  int     `mapstructure:"days"`
	Price float64 `mapstructure:"price"`
}

type SweepConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	IntervalHours  int  `mapstructure:"interval_hours"`
	LockTTLSeconds int  `mapstructure:"lock_ttl_seconds"`
}

type QueueConfig struct {
	MediaCleanupQueue string `mapstructure:"media_cleanup_queue"`
	MaxWorkers        int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level string        `mapstructure:"level"`
	File  LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`     // 天
	Compress   bool   `mapstructure:"compress"`
}

type UploadConfig struct {
	MaxImageSize      int64    `mapstructure:"max_image_size"` // 字节
	MaxVideoSize      int64    `mapstructure:"max_video_size"` // 字节
	AllowedImageTypes []string `mapstructure:"allowed_image_types"`
	AllowedVideoTypes []string `mapstructure:"allowed_video_types"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("payment.salt_index", "1")
	v.SetDefault("payment.success_code", "PAYMENT_SUCCESS")
	v.SetDefault("ads.max_images", 5)
	v.SetDefault("ads.plans", []map[string]interface{}{
		{"days": 7, "price": 99},
		{"days": 15, "price": 179},
		{"days": 30, "price": 299},
	})
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval_hours", 24)
	v.SetDefault("sweep.lock_ttl_seconds", 600)
	v.SetDefault("queue.media_cleanup_queue", "media_cleanup")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("upload.max_image_size", 5*1024*1024)
	v.SetDefault("upload.max_video_size", 50*1024*1024)
	v.SetDefault("upload.allowed_image_types", []string{"image/jpeg", "image/png", "image/webp"})
	v.SetDefault("upload.allowed_video_types", []string{"video/mp4"})
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
}

func Load(configPath string) (*Config, error) {
	// .env 可选，容器内通常直接注入环境变量
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// PlanFor 查找对应时长的套餐
func (c AdsConfig) PlanFor(days int) (AdPlan, bool) {
	for _, p := range c.Plans {
		if p.Days == days {
			return p, true
		}
	}
	return AdPlan{}, false
}

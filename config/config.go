package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	OSS       OSSConfig       `mapstructure:"oss"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Log       LogConfig       `mapstructure:"log"`
	Providers ProvidersConfig `mapstructure:"providers"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite, mysql, postgres
	Path         string `mapstructure:"path"`   // sqlite file
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

// Enabled reports whether progress events should be published through redis.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type StorageConfig struct {
	TmpDir     string `mapstructure:"tmp_dir"`     // scratch, cleared at startup
	UploadsDir string `mapstructure:"uploads_dir"` // {upload_id}{ext}
	VideosDir  string `mapstructure:"videos_dir"`  // {analysis_id}_{lang}.mp4
}

type UploadConfig struct {
	MaxSize            int64    `mapstructure:"max_size"`             // bytes
	MaxDurationSeconds int      `mapstructure:"max_duration_seconds"` // probed with ffprobe
	AllowedExtensions  []string `mapstructure:"allowed_extensions"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

type ProvidersConfig struct {
	Groq   GroqConfig   `mapstructure:"groq"`
	Gemini GeminiConfig `mapstructure:"gemini"`
}

type GroqConfig struct {
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url"`
	Model         string  `mapstructure:"model"`
	CostPerSecond float64 `mapstructure:"cost_per_second"`
}

type GeminiConfig struct {
	APIKey                string  `mapstructure:"api_key"`
	Model                 string  `mapstructure:"model"`
	ArticleModel          string  `mapstructure:"article_model"`
	InputCostPerM         float64 `mapstructure:"input_cost_per_m"`
	OutputCostPerM        float64 `mapstructure:"output_cost_per_m"`
	ArticleInputCostPerM  float64 `mapstructure:"article_input_cost_per_m"`
	ArticleOutputCostPerM float64 `mapstructure:"article_output_cost_per_m"`
}

type YouTubeConfig struct {
	CookiesFile string `mapstructure:"cookies_file"`
}

type PipelineConfig struct {
	MaxSegmentSeconds int `mapstructure:"max_segment_seconds"`
}

type CleanupConfig struct {
	IntervalMinutes   int    `mapstructure:"interval_minutes"`
	UploadExpireHours int    `mapstructure:"upload_expire_hours"`
	TmpExpireHours    int    `mapstructure:"tmp_expire_hours"` // also ages out abandoned partial renders
	LockFile          string `mapstructure:"lock_file"`        // shared by the server sweep and cmd/cleanup
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "khotba.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})

	v.SetDefault("storage.tmp_dir", "tmp")
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.videos_dir", "videos")

	v.SetDefault("upload.max_size", 500*1024*1024)
	v.SetDefault("upload.max_duration_seconds", 120*60)
	v.SetDefault("upload.allowed_extensions", []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")

	v.SetDefault("providers.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("providers.groq.model", "whisper-large-v3")
	v.SetDefault("providers.groq.cost_per_second", 0.111/3600)

	v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("providers.gemini.article_model", "gemini-2.5-pro")
	v.SetDefault("providers.gemini.input_cost_per_m", 0.30)
	v.SetDefault("providers.gemini.output_cost_per_m", 2.50)
	v.SetDefault("providers.gemini.article_input_cost_per_m", 1.25)
	v.SetDefault("providers.gemini.article_output_cost_per_m", 10.0)

	v.SetDefault("pipeline.max_segment_seconds", 30*60)

	v.SetDefault("cleanup.interval_minutes", 60)
	v.SetDefault("cleanup.upload_expire_hours", 24)
	v.SetDefault("cleanup.tmp_expire_hours", 3)
	v.SetDefault("cleanup.lock_file", "khotba-cleanup.lock")
}

func Load(configPath string) (*Config, error) {
	// config.local.yaml holds real keys and is not committed
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Provider keys are commonly exported under their vendor names.
	_ = v.BindEnv("providers.groq.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("providers.gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("youtube.cookies_file", "YOUTUBE_COOKIES_FILE")

	if err := v.ReadInConfig(); err != nil {
		// A missing file leaves defaults and env in charge.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// ALLOWED_ORIGIN replaces the origin list with a single entry
	if origin := os.Getenv("ALLOWED_ORIGIN"); origin != "" {
		cfg.CORS.AllowedOrigins = []string{origin}
	}

	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 RECIPE_SERVER_PORT
const EnvPrefix = "RECIPE"

// ConfigFileEnv 指定配置文件路径的环境变量
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// Config 应用程序配置结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Environment     string        `mapstructure:"environment" validate:"oneof=development production test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Address 返回服务器监听地址，Host为空时监听所有网卡
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig 静态目录与可写文档配置
type StorageConfig struct {
	Root         string `mapstructure:"root" validate:"required"`
	DocumentPath string `mapstructure:"document_path" validate:"required,documentpath"`
}

// DocumentRoute 文档对应的URL路径
func (s *StorageConfig) DocumentRoute() string {
	return "/" + filepath.ToSlash(filepath.Clean(s.DocumentPath))
}

// DocumentFile 文档在磁盘上的路径
func (s *StorageConfig) DocumentFile() string {
	return filepath.Join(s.Root, filepath.FromSlash(s.DocumentPath))
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format" validate:"oneof=json text"`
	Output   string `mapstructure:"output" validate:"oneof=stdout file"`
	FilePath string `mapstructure:"file_path" validate:"required_if=Output file"`
}

// ToLoggerConfig 转换为logger.Config
func (l *LogConfig) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:    l.Level,
		Format:   l.Format,
		Output:   l.Output,
		FilePath: l.FilePath,
	}
}

// Load 加载配置: .env -> 配置文件 -> 环境变量 -> 默认值
// 设置了 RECIPE_CONFIG 时只读取该文件
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		return LoadFile(path)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/recipe-store")
	v.AddConfigPath("$HOME/.recipe-store")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFile 从指定文件加载配置，环境变量仍然生效
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return unmarshal(v)
}

// Default 仅包含默认值的配置，不读取环境变量
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := unmarshal(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容常见的PORT变量
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	return v
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "0s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("storage.root", ".")
	v.SetDefault("storage.document_path", "data/data.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("读取.env失败: %w", err)
	}
	return nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	return newValidator().Struct(c)
}

func newValidator() *validator.Validate {
	v := validator.New()

	// 文档路径必须是根目录下的相对路径
	_ = v.RegisterValidation("documentpath", func(fl validator.FieldLevel) bool {
		p := filepath.ToSlash(fl.Field().String())
		if p == "" || strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
			return false
		}
		cleaned := filepath.ToSlash(filepath.Clean(p))
		return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
	})

	return v
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

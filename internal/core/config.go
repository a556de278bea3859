package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Scrape      models.ScrapeConfig `mapstructure:"scrape"`
	Logging     LoggingConfig       `mapstructure:"logging"`
	Output      OutputConfig        `mapstructure:"output"`
	Screenshots ScreenshotsConfig   `mapstructure:"screenshots"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// ScreenshotsConfig 批量截图配置
type ScreenshotsConfig struct {
	// URLs 待截图的URL列表
	URLs []string `mapstructure:"urls"`

	// Concurrency 并发截图数
	Concurrency int `mapstructure:"concurrency"`
}

// DefaultOutputDir 返回默认输出目录 (~/Downloads/web-scraper)
// 主目录不可用时回落到当前目录下的downloads
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return filepath.Join(home, "Downloads", "web-scraper")
}

// LoadConfig 加载配置文件
// 按 指定路径 > ./configs > . > ~/.webscrape 的顺序查找,缺失时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".webscrape"))
		}
	}

	// 环境变量覆盖 (如 WEBSCRAPE_SCRAPE_TIMEOUT)
	v.SetEnvPrefix("WEBSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时直接使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if config.Scrape.OutputDir == "" {
		config.Scrape.OutputDir = config.Output.BaseDir
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 抓取配置默认值
	v.SetDefault("scrape.timeout", 60)
	v.SetDefault("scrape.settle_ms", 1500)
	v.SetDefault("scrape.debug", false)
	v.SetDefault("scrape.download", false)
	v.SetDefault("scrape.mode", "dynamic")

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", DefaultOutputDir())

	// 批量截图默认值
	v.SetDefault("screenshots.urls", []string{})
	v.SetDefault("screenshots.concurrency", 2)
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(timeout int, settleMillis int, outputDir string, mode string, debug bool, download bool) {
	if timeout > 0 {
		c.Scrape.Timeout = timeout
	}
	if settleMillis >= 0 {
		c.Scrape.SettleMillis = settleMillis
	}
	if outputDir != "" {
		c.Scrape.OutputDir = outputDir
	}
	if mode != "" {
		c.Scrape.Mode = mode
	}
	if debug {
		c.Scrape.Debug = true
	}
	if download {
		c.Scrape.Download = true
	}
}

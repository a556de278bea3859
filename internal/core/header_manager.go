package core

import (
	"net/http"

	"github.com/orbruno/web-scraper-cli/internal/config"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent,与浏览器页面使用的UA保持同一版本
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// defaultHeaders 直连请求的内置头部
// Accept-Encoding只声明下载器能解码的编码
func defaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
		"Accept-Language": []string{"de-DE,de;q=0.9,en;q=0.8"},
	}
}

// HeaderManager 管理直连下载器和静态提取器的HTTP请求头部
// 优先级: 内置默认 < 配置文件 < 命令行 --header
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	loaded bool
}

// NewHeaderManager 创建头部管理器
// configFile为空时使用默认配置路径;命令行头部解析失败直接报错
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults:     defaultHeaders(),
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}, nil
}

// LoadConfig 加载配置文件中的头部,重复调用只加载一次
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	hm.config = make(http.Header, len(headerConfig.Headers))
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}
	hm.loaded = true

	if len(headerConfig.Headers) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %v",
			len(headerConfig.Headers), hm.redactor.Redact(hm.config))
	}
	return nil
}

// Validate 验证三层头部的合法性
func (hm *HeaderManager) Validate() error {
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		if err := hm.validator.Validate(layer); err != nil {
			utils.Errorf("HTTP头部验证失败: %v", err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并三层头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	merged := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			merged[name] = values
		}
	}
	return merged
}

// GetSafeHeaders 返回脱敏后的合并头部,用于日志和--validate-config输出
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
// 加载并验证后返回合并头部,任一环节失败时不发请求
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}

package main

import (
	"fmt"
	"net/url"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

// ValidateScrapeFlags 验证scrape子命令的标志
// timeout和settle为0/-1时表示使用配置文件的值,跳过范围检查
func ValidateScrapeFlags(targetURL string, timeout int, settleMillis int, mode string) error {
	if err := models.ValidateURL(targetURL); err != nil {
		return fmt.Errorf("无效的目标URL: %w", err)
	}

	if timeout != 0 && (timeout < 1 || timeout > 600) {
		return fmt.Errorf("导航超时必须在1-600秒之间,当前值: %d", timeout)
	}

	if settleMillis > 60000 {
		return fmt.Errorf("静置时间必须在0-60000毫秒之间,当前值: %d", settleMillis)
	}

	if mode != "" && mode != "dynamic" && mode != "static" {
		return fmt.Errorf("无效的提取模式: %s (有效值: dynamic, static)", mode)
	}

	return nil
}

// NormalizeURL 规范化URL
// 没有协议时默认补https
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}

package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL 验证抓取目标URL
// 只接受带主机名的http/https地址;含空白字符的URL直接拒绝,
// 避免把粘贴进来的多段文本当成目标
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("目标URL不能为空")
	}
	if strings.ContainsAny(rawURL, " \t\n\r") {
		return fmt.Errorf("目标URL不能包含空白字符: %q", rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

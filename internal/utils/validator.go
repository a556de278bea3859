package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

const (
	// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
	MaxHeaderValueLength = 8192
)

var (
	// ForbiddenHeaders 禁止用户配置的头部,由HTTP客户端自动管理
	ForbiddenHeaders = []string{
		"Host",
		"Content-Length",
		"Transfer-Encoding",
		"Connection",
	}

	// SupportedContentEncodings 下载器能够解码的内容编码
	// 用户自定义Accept-Encoding时只允许这些,否则下载落盘的是未解压的字节
	SupportedContentEncodings = map[string]bool{
		"gzip":     true,
		"deflate":  true,
		"br":       true,
		"identity": true,
	}

	// headerNamePattern RFC 7230头部名称: 字母、数字和连字符
	headerNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

// HeaderValidator 验证HTTP头部是否符合RFC 7230规范
// 以及是否与下载器的能力兼容
type HeaderValidator struct {
	forbidden map[string]bool
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	forbidden := make(map[string]bool, len(ForbiddenHeaders))
	for _, h := range ForbiddenHeaders {
		forbidden[strings.ToLower(h)] = true
	}
	return &HeaderValidator{forbidden: forbidden}
}

// ValidateName 验证头部名称
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称不能为空",
		}
	}

	if !headerNamePattern.MatchString(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符 (仅允许字母、数字和连字符)",
			Suggestion: "使用字母、数字和连字符 (如 'Referer', 'X-Goog-Api-Key')",
		}
	}

	return nil
}

// ValidateValue 验证头部值: 长度上限内的可打印ASCII
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > MaxHeaderValueLength {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), MaxHeaderValueLength),
			Suggestion: fmt.Sprintf("将值缩短至 %d 字节以内", MaxHeaderValueLength),
		}
	}

	for _, r := range value {
		if r == '\t' || (r >= 0x20 && r <= 0x7E) {
			continue
		}
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}

	return nil
}

// ValidateHeader 验证单个头部
// 禁止头部和下载器无法解码的Accept-Encoding直接拒绝
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部由HTTP客户端自动管理,不允许自定义",
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
	}

	if err := hv.ValidateName(name); err != nil {
		return err
	}
	if err := hv.ValidateValue(name, value); err != nil {
		return err
	}

	if strings.EqualFold(name, "Accept-Encoding") {
		return hv.validateAcceptEncoding(value)
	}
	return nil
}

// validateAcceptEncoding 检查Accept-Encoding只声明下载器支持的编码
// 声明了zstd之类不支持的编码,服务端照做后落盘的就是压缩字节
func (hv *HeaderValidator) validateAcceptEncoding(value string) error {
	for _, token := range strings.Split(value, ",") {
		coding := strings.TrimSpace(token)
		// 去掉;q=权重参数
		if idx := strings.Index(coding, ";"); idx != -1 {
			coding = strings.TrimSpace(coding[:idx])
		}
		if coding == "" || coding == "*" {
			continue
		}
		if !SupportedContentEncodings[strings.ToLower(coding)] {
			return &models.ValidationError{
				Field:      "value",
				HeaderName: "Accept-Encoding",
				Reason:     fmt.Sprintf("不支持的内容编码: %s", coding),
				Suggestion: "仅使用 gzip, deflate, br, identity",
			}
		}
	}
	return nil
}

// IsForbidden 检查头部是否被禁止 (不区分大小写)
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return hv.forbidden[strings.ToLower(name)]
}

// Validate 验证http.Header中的所有头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

package utils

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

const (
	// FallbackFilename 无法派生文件名时的兜底值
	// 文件名派生永远不能中止一次抓取
	FallbackFilename = "unknown"
)

var (
	// filenameParamPattern 匹配URL中的filename参数
	// 同时容忍字面量"="和百分号编码的"%3D"
	filenameParamPattern = regexp.MustCompile(`(?i)filename(?:=|%3D)`)

	// opaqueIDPattern 36字符的十六进制+连字符标识(如UUID)
	opaqueIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

	// illegalFilenameChars 文件系统非法字符
	illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// ResolveFilename 从URL派生出适合本地文件系统的文件名
//
// 算法:
//  1. 解码URL,查找filename=参数(容忍字面量和编码形式的等号);
//     找到则解码、还原常见的百分号编码标点、去除非法字符、在第一个&处截断
//  2. 否则取路径最后一段;若是36字符的不透明标识且无扩展名,
//     在完整URL中扫描已知扩展名模式并补全
//  3. 兜底返回 "unknown"
//
// 任何解析失败都返回兜底值而不向上传播
func ResolveFilename(rawURL string) string {
	if rawURL == "" {
		return FallbackFilename
	}

	// 第一层解码: 处理整体被编码过的URL
	decoded, err := url.QueryUnescape(rawURL)
	if err != nil {
		decoded = rawURL
	}

	// 优先: filename=参数
	if loc := filenameParamPattern.FindStringIndex(decoded); loc != nil {
		name := decoded[loc[1]:]

		// 在第一个&处截断(后续参数不属于文件名)
		if idx := strings.Index(name, "&"); idx != -1 {
			name = name[:idx]
		}

		// 还原残留的百分号编码标点(如%20空格、%28/%29圆括号)
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}

		name = SanitizeFilename(name)
		if name != "" {
			return name
		}
	}

	// 其次: 路径最后一段
	parsed, err := url.Parse(decoded)
	if err != nil {
		return FallbackFilename
	}

	segment := path.Base(parsed.Path)
	if segment == "" || segment == "." || segment == "/" {
		return FallbackFilename
	}

	// 不透明标识(UUID形态)且无扩展名: 在完整URL中找扩展名并补全
	if opaqueIDPattern.MatchString(segment) && path.Ext(segment) == "" {
		if m := models.FileExtensionPattern.FindString(decoded); m != "" {
			return SanitizeFilename(segment + strings.ToLower(m))
		}
	}

	name := SanitizeFilename(segment)
	if name == "" {
		return FallbackFilename
	}
	return name
}

// SanitizeFilename 去除文件名中的非法字符和首尾空白
func SanitizeFilename(name string) string {
	// 防御路径遍历: 先只保留最后一段
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	name = illegalFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return ""
	}
	return name
}

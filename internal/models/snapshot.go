package models

import (
	"regexp"
	"strings"
)

const (
	// MaxExcerptLength 正文摘要最大长度(字符)
	MaxExcerptLength = 500
)

// DownloadableExtensions 支持识别的可下载文件扩展名(不含点号)
// 与 info 子命令展示的支持列表保持一致
var DownloadableExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"zip", "rar", "7z", "tar", "gz",
	"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp",
	"mp3", "mp4", "wav", "flac", "avi", "mov", "mkv",
	"txt", "csv", "json", "xml",
}

// FileExtensionPattern 匹配"带已知扩展名的文件名"的正则
// 用于aria-label扫描和URL扩展名推断
var FileExtensionPattern = regexp.MustCompile(
	`(?i)\.(` + strings.Join(DownloadableExtensions, "|") + `)\b`)

// TruncateExcerpt 把摘要截断到最大长度(按字符数,不截断多字节字符)
func TruncateExcerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxExcerptLength {
		return s
	}
	return string(runes[:MaxExcerptLength])
}

// HasDownloadableExtension 判断URL或文件名是否以已知可下载扩展名结尾
// 容忍查询参数(如 report.pdf?token=xxx)
func HasDownloadableExtension(s string) bool {
	lower := strings.ToLower(s)

	// 截断查询参数和fragment
	if idx := strings.IndexAny(lower, "?#"); idx != -1 {
		lower = lower[:idx]
	}

	for _, ext := range DownloadableExtensions {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}

// Link 页面中发现的普通链接
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Image 页面中发现的图片
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// FileReference 页面中发现的可下载文件引用
type FileReference struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`

	// DeclaredType 页面声称的类型(由扩展名推断,可能与真实内容不符)
	DeclaredType string `json:"declared_type,omitempty"`
}

// Card 卡片类内容块(如TaskCards看板中的卡片文本)
type Card struct {
	Text string `json:"text"`
}

// PageSnapshot 单次抓取的页面快照
// 由提取策略构建,构建后不再修改,生命周期仅限一次运行
type PageSnapshot struct {
	Title   string          `json:"title"`
	Excerpt string          `json:"excerpt,omitempty"`
	Cards   []Card          `json:"cards,omitempty"`
	Files   []FileReference `json:"files"`
	Images  []Image         `json:"images"`
	Links   []Link          `json:"links"`
}

// DiscoveryMethod 文件URL的发现方式标记
type DiscoveryMethod string

const (
	MethodGenericAnchor  DiscoveryMethod = "generic_anchor"  // 通用策略: 带扩展名的<a>标签
	MethodDataAttribute  DiscoveryMethod = "data_attribute"  // data-*属性中的存储URL
	MethodAnchorHref     DiscoveryMethod = "anchor_href"     // href直接指向存储URL
	MethodComponentState DiscoveryMethod = "component_state" // 框架内部组件状态
	MethodImageSource    DiscoveryMethod = "image_source"    // 带附件标记的图片src
	MethodDocumentScan   DiscoveryMethod = "document_scan"   // 全文档正则扫描(兜底)
	MethodNetworkCapture DiscoveryMethod = "network_capture" // 交互后的网络响应捕获
)

// FileCandidate 待下载的文件候选
// 由提取策略产出,下载阶段消费;URL可能为空(仅知道文件名时)
type FileCandidate struct {
	// Name 派生出的文件名(已初步清洗)
	Name string `json:"name"`

	// URL 下载地址,可能为空
	URL string `json:"url,omitempty"`

	// Method 发现方式
	Method DiscoveryMethod `json:"method"`

	// X, Y 元素在页面中的点击坐标(专用策略记录,用于交互发现)
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

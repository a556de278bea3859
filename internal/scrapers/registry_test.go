package scrapers

import (
	"net/url"
	"testing"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

func TestRegistry_Select(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"TaskCards主域", "https://taskcards.de/#/board/abc123", "taskcards"},
		{"TaskCards子域", "https://www.taskcards.de/#/board/abc123", "taskcards"},
		{"普通网站回落到通用策略", "https://example.com/page", "generic"},
		{"域名包含taskcards但不是该站", "https://nottaskcards.de/page", "generic"},
		{"无法解析的URL回落到通用策略", "://broken", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := registry.Select(tt.url)
			if strategy.Name() != tt.want {
				t.Errorf("Select(%q) = %s, 期望 %s", tt.url, strategy.Name(), tt.want)
			}
		})
	}
}

// 注册顺序即匹配优先级: 先注册的谓词先命中
func TestRegistry_RegistrationOrder(t *testing.T) {
	registry := &Registry{fallback: NewGenericStrategy()}

	first := NewTaskCardsStrategy()
	registry.Register(func(u *url.URL) bool { return true }, first)
	registry.Register(func(u *url.URL) bool { return true }, NewGenericStrategy())

	if got := registry.Select("https://example.com"); got != Strategy(first) {
		t.Error("应该返回先注册的策略")
	}
}

func TestDedupCandidates(t *testing.T) {
	candidates := []models.FileCandidate{
		{Name: "a.pdf", URL: "https://example.com/a.pdf", Method: models.MethodDataAttribute},
		{Name: "a.pdf", URL: "https://example.com/a.pdf", Method: models.MethodDocumentScan},
		{Name: "b.pdf", URL: "https://example.com/b.pdf"},
		{Name: "a.pdf", URL: "https://example.com/other/a.pdf"}, // 同名不同URL,保留
	}

	deduped := dedupCandidates(candidates)

	if len(deduped) != 3 {
		t.Fatalf("去重后应剩3个, 得到: %d", len(deduped))
	}
	// 保留首次发现的记录
	if deduped[0].Method != models.MethodDataAttribute {
		t.Errorf("应保留首次发现的候选, 得到: %s", deduped[0].Method)
	}
}

func TestIsTaskCardsHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"https://taskcards.de/board", true},
		{"https://app.taskcards.de/board", true},
		{"https://TASKCARDS.DE/board", true},
		{"https://taskcards.de.evil.com/board", false},
		{"https://example.com", false},
	}

	for _, tt := range tests {
		parsed, err := url.Parse(tt.host)
		if err != nil {
			t.Fatalf("解析URL失败: %v", err)
		}
		if got := isTaskCardsHost(parsed); got != tt.want {
			t.Errorf("isTaskCardsHost(%s) = %v, 期望 %v", tt.host, got, tt.want)
		}
	}
}

func TestIsStorageFileURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"带alt=media标记", "https://firebasestorage.googleapis.com/v0/b/app/o/file.pdf?alt=media", true},
		{"带content-disposition标记", "https://firebasestorage.googleapis.com/v0/b/app/o/x?response-content-disposition=attachment", true},
		{"带filename参数", "https://firebasestorage.googleapis.com/v0/b/app/o/x?filename=report.pdf", true},
		{"带编码filename参数", "https://firebasestorage.googleapis.com/v0/b/app/o/x?filename%3Dreport.pdf", true},
		{"存储域名但无标记", "https://firebasestorage.googleapis.com/v0/b/app/o/thumb.png", false},
		{"非存储域名", "https://example.com/file.pdf?alt=media", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStorageFileURL(tt.url); got != tt.want {
				t.Errorf("isStorageFileURL(%q) = %v, 期望 %v", tt.url, got, tt.want)
			}
		})
	}
}

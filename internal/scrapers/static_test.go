package scrapers

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

const testPageHTML = `<!DOCTYPE html>
<html>
<head><title>测试页面</title><style>body { color: red; }</style></head>
<body>
<script>var ignored = "script content";</script>
<h1>欢迎</h1>
<p>这是页面正文内容。</p>
<a href="/files/report.pdf">下载报告</a>
<a href="/files/report.pdf">重复链接</a>
<a href="/about.html">关于我们</a>
<a href="mailto:someone@example.com">邮件</a>
<img src="/images/logo.png" alt="站标">
<img src="data:image/gif;base64,R0lGOD" alt="内联图">
</body>
</html>`

func TestStaticScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPageHTML))
	}))
	defer server.Close()

	scraper := NewStaticScraper(nil, 10*time.Second)
	snapshot, candidates, err := scraper.Scrape(server.URL)
	if err != nil {
		t.Fatalf("静态抓取失败: %v", err)
	}

	if snapshot.Title != "测试页面" {
		t.Errorf("标题错误: %q", snapshot.Title)
	}

	// 文件锚点归入files,不再出现在links里;重复链接去重,mailto被过滤
	if len(snapshot.Links) != 1 {
		t.Errorf("链接数应为1(去重且排除文件锚点后), 得到: %d", len(snapshot.Links))
	}
	for _, link := range snapshot.Links {
		if strings.HasSuffix(link.URL, ".pdf") {
			t.Errorf("文件锚点不应出现在链接列表中: %s", link.URL)
		}
	}
	if len(snapshot.Files) != 1 {
		t.Errorf("文件引用数应为1, 得到: %d", len(snapshot.Files))
	}

	// data: URI图片被跳过
	if len(snapshot.Images) != 1 {
		t.Errorf("图片数应为1, 得到: %d", len(snapshot.Images))
	}
	if len(snapshot.Images) > 0 && snapshot.Images[0].Alt != "站标" {
		t.Errorf("图片alt错误: %q", snapshot.Images[0].Alt)
	}

	// .pdf锚点成为文件候选
	if len(candidates) != 1 {
		t.Fatalf("文件候选数应为1, 得到: %d", len(candidates))
	}
	if candidates[0].Name != "report.pdf" {
		t.Errorf("候选文件名错误: %q", candidates[0].Name)
	}
	if candidates[0].Method != models.MethodGenericAnchor {
		t.Errorf("发现方式错误: %s", candidates[0].Method)
	}

	// 摘要不包含script和style内容
	if strings.Contains(snapshot.Excerpt, "script content") {
		t.Error("摘要不应包含script内容")
	}
	if strings.Contains(snapshot.Excerpt, "color: red") {
		t.Error("摘要不应包含style内容")
	}
	if !strings.Contains(snapshot.Excerpt, "页面正文") {
		t.Errorf("摘要应包含正文内容: %q", snapshot.Excerpt)
	}
}

// 同一页面内容不变时,两次提取必须得到相同的快照
func TestStaticScraper_Idempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPageHTML))
	}))
	defer server.Close()

	first, firstCandidates, err := NewStaticScraper(nil, 10*time.Second).Scrape(server.URL)
	if err != nil {
		t.Fatalf("第一次抓取失败: %v", err)
	}
	second, secondCandidates, err := NewStaticScraper(nil, 10*time.Second).Scrape(server.URL)
	if err != nil {
		t.Fatalf("第二次抓取失败: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("页面未变化时两次快照应相同:\n第一次: %+v\n第二次: %+v", first, second)
	}
	if !reflect.DeepEqual(firstCandidates, secondCandidates) {
		t.Errorf("页面未变化时两次候选应相同:\n第一次: %+v\n第二次: %+v", firstCandidates, secondCandidates)
	}
}

func TestExtractExcerpt(t *testing.T) {
	t.Run("空输入", func(t *testing.T) {
		if got := extractExcerpt(nil); got != "" {
			t.Errorf("空输入应返回空串, 得到: %q", got)
		}
	})

	t.Run("长文本截断", func(t *testing.T) {
		long := "<html><body>" + strings.Repeat("字", models.MaxExcerptLength+100) + "</body></html>"
		got := extractExcerpt([]byte(long))
		if n := len([]rune(got)); n != models.MaxExcerptLength {
			t.Errorf("摘要字符数应为%d, 得到: %d", models.MaxExcerptLength, n)
		}
	})

	t.Run("空白折叠", func(t *testing.T) {
		got := extractExcerpt([]byte("<html><body><p>a</p>\n\n\t<p>b</p></body></html>"))
		if got != "a b" {
			t.Errorf("空白应折叠为单个空格, 得到: %q", got)
		}
	})

	t.Run("优先正文容器", func(t *testing.T) {
		page := `<html><body>
			<nav>导航菜单 首页 关于</nav>
			<article><p>这才是正文内容</p></article>
			<footer>页脚版权信息</footer>
		</body></html>`
		got := extractExcerpt([]byte(page))
		if got != "这才是正文内容" {
			t.Errorf("应只取article内的文本, 得到: %q", got)
		}
	})

	t.Run("无正文容器时退回body", func(t *testing.T) {
		got := extractExcerpt([]byte("<html><body><div>普通页面文本</div></body></html>"))
		if got != "普通页面文本" {
			t.Errorf("无article/main时应取body文本, 得到: %q", got)
		}
	})
}

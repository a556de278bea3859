package scrapers

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
	"golang.org/x/net/html"
)

// StaticScraper 静态提取器(不启动浏览器)
// 只能看到服务端返回的HTML,适合内容不依赖JS渲染的页面
type StaticScraper struct {
	collector *colly.Collector
	headers   models.HeaderProvider
}

// NewStaticScraper 创建静态提取器
func NewStaticScraper(headers models.HeaderProvider, timeout time.Duration) *StaticScraper {
	c := colly.NewCollector()

	c.SetClient(&http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // 容忍目标站点的自签名证书
			},
		},
		Timeout: timeout,
	})
	c.SetRequestTimeout(timeout)

	return &StaticScraper{
		collector: c,
		headers:   headers,
	}
}

// Name 返回策略名称
func (ss *StaticScraper) Name() string {
	return "static"
}

// Scrape 抓取单个页面的静态HTML并构建快照
// JS渲染出来的内容在这个模式下不可见
func (ss *StaticScraper) Scrape(targetURL string) (*models.PageSnapshot, []models.FileCandidate, error) {
	snapshot := &models.PageSnapshot{}
	var candidates []models.FileCandidate
	var rawBody []byte
	var scrapeErr error

	seen := make(map[string]bool)
	var mu sync.Mutex

	ss.collector.OnRequest(func(r *colly.Request) {
		if ss.headers == nil {
			return
		}
		headers, err := ss.headers.GetHeaders()
		if err != nil {
			utils.Warnf("获取请求头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	ss.collector.OnHTML("title", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if snapshot.Title == "" {
			snapshot.Title = strings.TrimSpace(e.Text)
		}
	})

	ss.collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		linkURL := e.Request.AbsoluteURL(e.Attr("href"))
		if linkURL == "" || (!strings.HasPrefix(linkURL, "http://") && !strings.HasPrefix(linkURL, "https://")) {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if seen[linkURL] {
			return
		}
		seen[linkURL] = true

		// 带可下载扩展名的锚点归为文件,其余归为链接
		if models.HasDownloadableExtension(linkURL) {
			name := utils.ResolveFilename(linkURL)
			candidates = append(candidates, models.FileCandidate{
				Name:   name,
				URL:    linkURL,
				Method: models.MethodGenericAnchor,
			})
			snapshot.Files = append(snapshot.Files, models.FileReference{
				Name:         name,
				URL:          linkURL,
				DeclaredType: strings.TrimPrefix(strings.ToLower(models.FileExtensionPattern.FindString(linkURL)), "."),
			})
			return
		}

		snapshot.Links = append(snapshot.Links, models.Link{
			URL:  linkURL,
			Text: strings.TrimSpace(e.Text),
		})
	})

	ss.collector.OnHTML("img[src]", func(e *colly.HTMLElement) {
		imgURL := e.Request.AbsoluteURL(e.Attr("src"))
		if imgURL == "" || strings.HasPrefix(imgURL, "data:") {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		snapshot.Images = append(snapshot.Images, models.Image{
			URL: imgURL,
			Alt: e.Attr("alt"),
		})
	})

	ss.collector.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		rawBody = r.Body
	})

	ss.collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		scrapeErr = err
	})

	if err := ss.collector.Visit(targetURL); err != nil {
		return nil, nil, fmt.Errorf("访问页面失败: %w", err)
	}
	ss.collector.Wait()

	if scrapeErr != nil {
		return nil, nil, fmt.Errorf("抓取页面失败: %w", scrapeErr)
	}

	snapshot.Excerpt = extractExcerpt(rawBody)

	utils.Infof("📊 静态提取完成: 文件=%d, 图片=%d, 链接=%d",
		len(snapshot.Files), len(snapshot.Images), len(snapshot.Links))

	return snapshot, candidates, nil
}

// extractExcerpt 从HTML字节流提取正文摘要
// 优先取常见正文容器(article, main),跳过script和style节点,折叠空白后截断
func extractExcerpt(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(contentRegion(doc))

	return models.TruncateExcerpt(strings.Join(strings.Fields(sb.String()), " "))
}

// contentRegion 返回文档的正文容器节点
// 依次尝试article和main,都没有时退回body,连body都没有时返回整个文档
func contentRegion(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main", "body"} {
		if n := findElement(doc, tag); n != nil {
			return n
		}
	}
	return doc
}

// findElement 深度优先查找第一个指定标签的元素节点
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

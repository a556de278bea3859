package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
)

const (
	// MaxRedirects 单次下载允许的最大重定向次数
	// 超过即判定为重定向循环并中止
	MaxRedirects = 10

	// DefaultTimeout 单个文件下载超时
	DefaultTimeout = 60 * time.Second
)

// ErrTooManyRedirects 重定向次数超限
var ErrTooManyRedirects = fmt.Errorf("重定向次数超过%d次", MaxRedirects)

// StatusError 非2xx响应错误
type StatusError struct {
	URL        string
	StatusCode int
}

// Error 实现error接口
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP状态码异常 [%d]: %s", e.StatusCode, e.URL)
}

// Result 单次下载的结果元信息
type Result struct {
	// FinalURL 经过重定向后的最终URL
	FinalURL string

	// ContentType 最终响应的Content-Type
	ContentType string

	// Size 解压后写入磁盘的字节数
	Size int64
}

// Fetcher 直连下载器
// 不经过浏览器,手动跟随重定向并按Content-Encoding解压
type Fetcher struct {
	client  *http.Client
	headers models.HeaderProvider
	timeout time.Duration
}

// NewFetcher 创建直连下载器
// headers 为nil时不附加自定义头部
func NewFetcher(headers models.HeaderProvider, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true, // 容忍目标站点的自签名证书
				},
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			// 手动处理重定向,以便记录跳转链并限制次数
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		headers: headers,
		timeout: timeout,
	}
}

// Fetch 下载单个URL并写入dest
// 跟随最多MaxRedirects次重定向;任何失败都会清理不完整的本地文件
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, dest string) (*Result, error) {
	currentURL := rawURL

	for redirects := 0; ; redirects++ {
		if redirects > MaxRedirects {
			return nil, ErrTooManyRedirects
		}

		resp, err := f.doRequest(ctx, currentURL)
		if err != nil {
			return nil, fmt.Errorf("请求失败 [%s]: %w", currentURL, err)
		}

		// 3xx: 解析Location并继续跟随
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()

			if location == "" {
				return nil, &StatusError{URL: currentURL, StatusCode: resp.StatusCode}
			}

			next, err := url.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("重定向地址无效 [%s]: %w", location, err)
			}

			base, _ := url.Parse(currentURL)
			if base != nil {
				next = base.ResolveReference(next)
			}
			currentURL = next.String()

			utils.Debugf("跟随重定向 (%d/%d): %s", redirects+1, MaxRedirects, currentURL)
			continue
		}

		// 非2xx: 视为下载失败
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &StatusError{URL: currentURL, StatusCode: resp.StatusCode}
		}

		// 2xx: 写入磁盘
		result, err := f.saveBody(resp, dest)
		resp.Body.Close()
		if err != nil {
			// 清理不完整文件,失败的下载不留残余
			os.Remove(dest)
			return nil, err
		}

		result.FinalURL = currentURL
		return result, nil
	}
}

// doRequest 构造并发送单次GET请求
func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	if f.headers != nil {
		headers, err := f.headers.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("获取请求头部失败: %w", err)
		}
		for name, values := range headers {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	}

	return f.client.Do(req)
}

// saveBody 把响应体经解压读取器流式写入dest
// 大文件不整体进内存
func (f *Fetcher) saveBody(resp *http.Response, dest string) (*Result, error) {
	reader, closeReader, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	if closeReader != nil {
		defer closeReader()
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败 [%s]: %w", dest, err)
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("写入文件失败 [%s]: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("关闭文件失败 [%s]: %w", dest, err)
	}

	return &Result{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        written,
	}, nil
}

// decompressReader 根据Content-Encoding头部包装解压读取器
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
// 第二个返回值是解压器的释放函数,无需释放时为nil
func decompressReader(contentEncoding string, body io.Reader) (io.Reader, func() error, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		return reader, reader.Close, nil

	case "deflate":
		reader := flate.NewReader(body)
		return reader, reader.Close, nil

	case "br":
		return brotli.NewReader(body), nil, nil

	case "":
		return body, nil, nil

	default:
		// 未知编码按原始内容处理
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil, nil
	}
}

package unit

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbruno/web-scraper-cli/internal/core"
	"github.com/orbruno/web-scraper-cli/internal/fetch"
)

// tempConfigPath 返回临时目录下的头部配置路径
// GetHeaders会在路径不存在时自动生成模板,避免在工作目录留下文件
func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "headers.yaml")
}

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部覆盖下载所需字段", func(t *testing.T) {
		hm, err := core.NewHeaderManager("", nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()

		if headers.Get("User-Agent") == "" {
			t.Error("期望默认User-Agent存在")
		}
		// 下载器依赖Accept-Encoding声明它能解码的编码
		if headers.Get("Accept-Encoding") != "gzip, deflate, br" {
			t.Errorf("默认Accept-Encoding错误: %s", headers.Get("Accept-Encoding"))
		}
	})

	t.Run("命令行头部覆盖默认", func(t *testing.T) {
		hm, err := core.NewHeaderManager("", []string{"User-Agent: ScrapeBot/1.0"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if ua := hm.GetMergedHeaders().Get("User-Agent"); ua != "ScrapeBot/1.0" {
			t.Errorf("期望User-Agent='ScrapeBot/1.0', 实际='%s'", ua)
		}
	})

	t.Run("多个命令行头部", func(t *testing.T) {
		cliHeaders := []string{
			"User-Agent: ScrapeBot/1.0",
			"Referer: https://taskcards.de/#/board/abc",
			"Authorization: Bearer token123",
		}

		hm, err := core.NewHeaderManager("", cliHeaders)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()
		if headers.Get("User-Agent") != "ScrapeBot/1.0" {
			t.Error("User-Agent未正确设置")
		}
		if headers.Get("Referer") != "https://taskcards.de/#/board/abc" {
			t.Error("Referer未正确设置")
		}
		if headers.Get("Authorization") != "Bearer token123" {
			t.Error("Authorization未正确设置")
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	cliHeaders := []string{
		"User-Agent: ScrapeBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890",
	}

	hm, err := core.NewHeaderManager("", cliHeaders)
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safeHeaders := hm.GetSafeHeaders()

	if safeHeaders["User-Agent"] != "ScrapeBot/1.0" {
		t.Error("普通头部不应该被脱敏")
	}
	if safeHeaders["Authorization"] != "Bearer ***" {
		t.Errorf("期望Authorization='Bearer ***', 实际='%s'", safeHeaders["Authorization"])
	}
	if safeHeaders["X-API-Key"] == "api-key-67890" {
		t.Error("X-API-Key应该被脱敏")
	}
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		if _, err := core.NewHeaderManager("", []string{"InvalidFormat"}); err == nil {
			t.Error("期望返回错误, 但成功了")
		}
	})

	t.Run("禁止头部返回验证错误", func(t *testing.T) {
		hm, err := core.NewHeaderManager(tempConfigPath(t), []string{"Host: example.com"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if _, err := hm.GetHeaders(); err == nil {
			t.Error("期望返回验证错误, 但成功了")
		}
	})

	t.Run("下载器不支持的Accept-Encoding被拒绝", func(t *testing.T) {
		hm, err := core.NewHeaderManager(tempConfigPath(t), []string{"Accept-Encoding: zstd"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if _, err := hm.GetHeaders(); err == nil {
			t.Error("zstd编码应该被拒绝")
		}
	})

	t.Run("成功场景", func(t *testing.T) {
		cliHeaders := []string{
			"User-Agent: ScrapeBot/1.0",
			"Referer: https://taskcards.de/#/board/abc",
		}

		hm, err := core.NewHeaderManager(tempConfigPath(t), cliHeaders)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}

		if headers.Get("User-Agent") != "ScrapeBot/1.0" {
			t.Error("User-Agent未正确设置")
		}
		if headers.Get("Referer") != "https://taskcards.de/#/board/abc" {
			t.Error("Referer未正确设置")
		}
	})
}

// 合并后的头部必须真实出现在下载请求里: 自定义UA、Referer,
// 以及让服务端启用gzip的Accept-Encoding,下载器解压后落盘原始内容
func TestHeaderManager_FlowsIntoFetch(t *testing.T) {
	original := []byte("%PDF-1.4 attachment payload")

	var gotUA, gotReferer, gotEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotEncoding = r.Header.Get("Accept-Encoding")

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write(original)
		gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	hm, err := core.NewHeaderManager(tempConfigPath(t), []string{
		"User-Agent: ScrapeBot/1.0",
		"Referer: https://taskcards.de/#/board/abc",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "attachment.pdf")
	fetcher := fetch.NewFetcher(hm, 10*time.Second)
	if _, err := fetcher.Fetch(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("下载失败: %v", err)
	}

	if gotUA != "ScrapeBot/1.0" {
		t.Errorf("命令行User-Agent未到达请求: %s", gotUA)
	}
	if gotReferer != "https://taskcards.de/#/board/abc" {
		t.Errorf("命令行Referer未到达请求: %s", gotReferer)
	}
	if gotEncoding != "gzip, deflate, br" {
		t.Errorf("默认Accept-Encoding未到达请求: %s", gotEncoding)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("读取落盘文件失败: %v", err)
	}
	if !bytes.Equal(data, original) {
		t.Error("落盘内容应是解压后的原始内容")
	}
}

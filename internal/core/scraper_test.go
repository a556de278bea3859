package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

// 未开启下载时,输出目录里只能有结果文件,不能出现任何下载的文件
func TestScraperRun_DownloadDisabledWritesNoFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>下载页</title></head><body>
			<a href="/files/report.pdf">下载报告</a>
		</body></html>`))
	}))
	defer server.Close()

	outputDir := t.TempDir()
	config := models.ScrapeConfig{
		Timeout:      10,
		SettleMillis: 0,
		Mode:         "static",
		OutputDir:    outputDir,
		Download:     false,
	}

	scraper := NewScraper(config, nil)
	result, err := scraper.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}

	// 文件引用被发现但未下载
	if len(result.Files) != 1 {
		t.Errorf("文件引用数应为1, 得到: %d", len(result.Files))
	}
	if result.Downloads != nil {
		t.Error("未开启下载时不应有下载报告")
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("读取输出目录失败: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != models.ResultsFileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("输出目录应只有%s, 得到: %v", models.ResultsFileName, names)
	}
}

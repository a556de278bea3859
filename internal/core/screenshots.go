package core

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/scrapers"
	"github.com/orbruno/web-scraper-cli/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ScreenshotBatch 批量整页截图
// 共享一个浏览器实例,受限并发地为每个URL开独立标签页
type ScreenshotBatch struct {
	urls        []string
	outputDir   string
	settleTime  time.Duration
	timeout     time.Duration
	concurrency int
	debug       bool
}

// NewScreenshotBatch 创建批量截图任务
func NewScreenshotBatch(urls []string, outputDir string, config models.ScrapeConfig, concurrency int) *ScreenshotBatch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ScreenshotBatch{
		urls:        urls,
		outputDir:   outputDir,
		settleTime:  time.Duration(config.SettleMillis) * time.Millisecond,
		timeout:     time.Duration(config.Timeout) * time.Second,
		concurrency: concurrency,
		debug:       config.Debug,
	}
}

// Run 对所有URL执行截图
// 单个URL失败只记录警告,不中断批次;返回成功截图的数量
func (sb *ScreenshotBatch) Run(ctx context.Context) (int, error) {
	if len(sb.urls) == 0 {
		return 0, fmt.Errorf("没有待截图的URL,请在配置文件的screenshots.urls中添加")
	}

	if err := os.MkdirAll(sb.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("创建输出目录失败 [%s]: %w", sb.outputDir, err)
	}

	browser, err := scrapers.LaunchBrowser(sb.debug)
	if err != nil {
		return 0, err
	}
	defer browser.Close()

	utils.Infof("🚀 开始批量截图: %d个URL, 并发=%d", len(sb.urls), sb.concurrency)

	succeeded := make([]bool, len(sb.urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sb.concurrency)

	for i, rawURL := range sb.urls {
		i, rawURL := i, rawURL
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if err := sb.captureOne(browser, rawURL); err != nil {
				utils.Warnf("❌ 截图失败 [%s]: %v", rawURL, err)
				return nil
			}
			succeeded[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, ok := range succeeded {
		if ok {
			count++
		}
	}

	utils.Infof("✅ 批量截图完成: 成功=%d, 失败=%d", count, len(sb.urls)-count)
	return count, nil
}

// captureOne 为单个URL截图并落盘
func (sb *ScreenshotBatch) captureOne(browser *scrapers.Browser, rawURL string) error {
	if err := models.ValidateURL(rawURL); err != nil {
		return err
	}

	page, err := browser.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	navPage := page.Timeout(sb.timeout)
	if err := navPage.Navigate(rawURL); err != nil {
		return &models.NavigationError{URL: rawURL, Cause: err}
	}
	if err := navPage.WaitLoad(); err != nil {
		return &models.NavigationError{URL: rawURL, Cause: err}
	}

	if sb.settleTime > 0 {
		time.Sleep(sb.settleTime)
	}

	data, err := page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}

	dest := filepath.Join(sb.outputDir, screenshotFileName(rawURL))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("写入截图失败: %w", err)
	}

	utils.Infof("📷 截图已保存: %s", dest)
	return nil
}

// screenshotFileName 由URL派生截图文件名
// 形如 host_path.png,非法字符替换为下划线
func screenshotFileName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "screenshot.png"
	}

	name := parsed.Host + parsed.Path
	name = strings.Trim(name, "/")
	replacer := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_")
	name = replacer.Replace(name)
	if name == "" {
		name = "screenshot"
	}
	return name + ".png"
}

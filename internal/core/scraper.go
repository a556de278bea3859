package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/orbruno/web-scraper-cli/internal/fetch"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/scrapers"
	"github.com/orbruno/web-scraper-cli/internal/utils"
)

// Scraper 单页抓取编排器
// 串联 浏览器 -> 策略提取 -> 截图 -> 下载 -> 结果落盘 的完整流程
type Scraper struct {
	config   models.ScrapeConfig
	headers  models.HeaderProvider
	registry *scrapers.Registry
	reporter *utils.Reporter
}

// NewScraper 创建抓取编排器
func NewScraper(config models.ScrapeConfig, headers models.HeaderProvider) *Scraper {
	return &Scraper{
		config:   config,
		headers:  headers,
		registry: scrapers.NewRegistry(),
		reporter: utils.NewReporter(config.OutputDir),
	}
}

// Run 执行一次完整抓取
// 输出目录不可写是致命错误;单个文件下载失败不是
func (s *Scraper) Run(ctx context.Context, targetURL string) (*models.ScrapeResult, error) {
	startTime := time.Now()

	if err := models.ValidateURL(targetURL); err != nil {
		return nil, err
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败 [%s]: %w", s.config.OutputDir, err)
	}

	utils.Infof("🚀 开始抓取: %s", targetURL)
	utils.Infof("输出目录: %s", s.config.OutputDir)
	utils.Infof("提取模式: %s", s.config.Mode)

	var result *models.ScrapeResult
	var candidates []models.FileCandidate
	var err error

	if s.config.Mode == "static" {
		result, candidates, err = s.runStatic(targetURL)
	} else {
		result, candidates, err = s.runDynamic(targetURL)
	}
	if err != nil {
		return nil, err
	}

	// 下载阶段: 仅在显式开启时执行
	if s.config.Download {
		fetcher := fetch.NewFetcher(s.headers, time.Duration(s.config.Timeout)*time.Second)
		downloader := NewDownloader(fetcher, s.config.OutputDir)
		result.Downloads = downloader.DownloadAll(ctx, candidates, len(result.Files))
	}

	result.Duration = time.Since(startTime).Seconds()

	if _, err := s.reporter.WriteResults(result); err != nil {
		return nil, err
	}

	utils.Infof("✅ 抓取完成: 策略=%s, 文件=%d, 耗时=%.2f秒",
		result.Strategy, len(result.Files), result.Duration)

	return result, nil
}

// runDynamic 浏览器渲染模式
func (s *Scraper) runDynamic(targetURL string) (*models.ScrapeResult, []models.FileCandidate, error) {
	browser, err := scrapers.LaunchBrowser(s.config.Debug)
	if err != nil {
		return nil, nil, err
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, nil, err
	}

	timeout := time.Duration(s.config.Timeout) * time.Second
	navPage := page.Timeout(timeout)

	if err := navPage.Navigate(targetURL); err != nil {
		return nil, nil, &models.NavigationError{URL: targetURL, Cause: err}
	}
	if err := navPage.WaitLoad(); err != nil {
		return nil, nil, &models.NavigationError{URL: targetURL, Cause: err}
	}

	strategy := s.registry.Select(targetURL)
	utils.Infof("使用提取策略: %s", strategy.Name())

	snapshot, candidates, err := strategy.Extract(page, scrapers.Options{
		SettleTime: time.Duration(s.config.SettleMillis) * time.Millisecond,
		Timeout:    timeout,
		Debug:      s.config.Debug,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("页面提取失败: %w", err)
	}

	result := models.NewScrapeResult(targetURL, strategy.Name(), snapshot)

	// 整页截图: 提取之后、下载之前,页面状态已稳定
	if path, err := s.captureScreenshot(page); err != nil {
		utils.Warnf("截图失败: %v", err)
	} else {
		result.ScreenshotPath = path
	}

	return result, candidates, nil
}

// runStatic 静态HTML模式,不启动浏览器,也没有截图
func (s *Scraper) runStatic(targetURL string) (*models.ScrapeResult, []models.FileCandidate, error) {
	static := scrapers.NewStaticScraper(s.headers, time.Duration(s.config.Timeout)*time.Second)

	snapshot, candidates, err := static.Scrape(targetURL)
	if err != nil {
		return nil, nil, &models.NavigationError{URL: targetURL, Cause: err}
	}

	return models.NewScrapeResult(targetURL, static.Name(), snapshot), candidates, nil
}

// captureScreenshot 保存整页截图到输出目录
func (s *Scraper) captureScreenshot(page *rod.Page) (string, error) {
	data, err := page.Screenshot(true, nil)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.config.OutputDir, models.ScreenshotFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	utils.Infof("📷 截图已保存: %s", path)
	return path, nil
}

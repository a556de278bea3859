package scrapers

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/orbruno/web-scraper-cli/internal/utils"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// MinAvailableMemory 启动浏览器所需的最小可用内存 (512MB)
	// Chromium实例加一个标签页的保守估算
	MinAvailableMemory = 512 * 1024 * 1024

	// ViewportWidth 桌面视口宽度
	ViewportWidth = 1920

	// ViewportHeight 桌面视口高度
	ViewportHeight = 1080

	// DesktopUserAgent 桌面浏览器UA
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Browser 受控浏览器实例
// 封装启动、建页和释放,页面统一应用stealth和桌面视口
type Browser struct {
	browser *rod.Browser
	debug   bool
}

// LaunchBrowser 启动受控浏览器
// debug为true时显示浏览器窗口,便于观察页面交互
func LaunchBrowser(debug bool) (*Browser, error) {
	// 启动前检查可用内存,避免在资源紧张的机器上拖垮系统
	if vmStat, err := mem.VirtualMemory(); err == nil {
		if vmStat.Available < MinAvailableMemory {
			return nil, fmt.Errorf("可用内存不足: %d MB (至少需要 %d MB)",
				vmStat.Available/1024/1024, MinAvailableMemory/1024/1024)
		}
	} else {
		utils.Warnf("获取系统内存失败,跳过内存检查: %v", err)
	}

	l := launcher.New().
		Headless(!debug).
		Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s (headless=%v)", controlURL, !debug)

	return &Browser{
		browser: browser,
		debug:   debug,
	}, nil
}

// NewPage 创建一个应用了stealth脚本的新标签页
// 统一设置桌面视口和UA,保证页面按桌面布局渲染
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("设置视口失败: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: DesktopUserAgent,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("设置UA失败: %w", err)
	}

	return page, nil
}

// Debug 返回是否处于调试模式
func (b *Browser) Debug() bool {
	return b.debug
}

// Close 关闭浏览器及其所有标签页
// 无论抓取成功与否都必须调用,通常配合defer使用
func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.MustClose()
		utils.Debugf("浏览器已关闭")
	}
}

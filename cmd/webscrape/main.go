package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/orbruno/web-scraper-cli/internal/core"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证头部配置文件

	// 抓取参数
	download     bool
	outputDir    string
	debugMode    bool
	timeout      int
	settleMillis int
	mode         string

	// 批量截图参数
	urlFile string
)

// appConfig 由PersistentPreRunE加载,子命令共享
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "webscrape",
	Short: "浏览器渲染的网页抓取和文件下载工具",
	Long: `webscrape - 浏览器渲染的网页抓取和文件下载工具

在受控浏览器中渲染JS驱动的页面,提取页面元数据和可下载文件引用,
可选地下载文件并按字节签名校验真实类型。

支持:
  • 动态(浏览器渲染)和静态(纯HTML)两种提取模式
  • 看板类页面的专用提取策略(被动发现 + 交互式点击捕获)
  • 文件字节签名校验和扩展名自动修正
  • 整页截图和批量截图
  • 自定义HTTP请求头

使用示例:
  # 抓取页面(只提取,不下载)
  webscrape scrape https://example.com

  # 抓取并下载发现的文件
  webscrape scrape https://example.com -d -o ./out

  # 自定义HTTP头部
  webscrape scrape https://example.com -H "Authorization: Bearer token"

  # 验证头部配置文件
  webscrape --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = config

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 验证头部配置
		if validateConfig {
			headerManager, err := core.NewHeaderManager(configFile, headers)
			if err != nil {
				return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
			}

			utils.Info("🔍 验证HTTP头部配置...")
			if err := headerManager.LoadConfig(); err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if err := headerManager.Validate(); err != nil {
				return fmt.Errorf("配置验证失败: %w", err)
			}

			safeHeaders := headerManager.GetSafeHeaders()
			utils.Info("✅ 配置验证通过!")
			utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
			for name, value := range safeHeaders {
				utils.Infof("  %s: %s", name, value)
			}
			return nil
		}

		return cmd.Help()
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "抓取单个页面",
	Long: `抓取单个页面: 渲染、提取元数据和文件引用、截图,可选下载文件。

输出目录中会生成:
  page-screenshot.png   整页截图 (仅dynamic模式)
  scrape-results.json   结构化结果
  <下载的文件>           使用 -d 时`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetURL, err := NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}

		if err := ValidateScrapeFlags(targetURL, timeout, settleMillis, mode); err != nil {
			return err
		}

		appConfig.MergeCLIFlags(timeout, settleMillis, outputDir, mode, debugMode, download)

		headerManager, err := core.NewHeaderManager(configFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		ctx := signalContext()

		scraper := core.NewScraper(appConfig.Scrape, headerManager)
		result, err := scraper.Run(ctx, targetURL)
		if err != nil {
			return fmt.Errorf("抓取失败: %w", err)
		}

		printSummary(result)
		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

var screenshotsCmd = &cobra.Command{
	Use:   "screenshots",
	Short: "批量截图配置文件中列出的URL",
	Long:  "对配置文件 screenshots.urls 或 --url-file 中的每个URL做整页截图,共享一个浏览器实例并受限并发。",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig.MergeCLIFlags(timeout, settleMillis, outputDir, "", debugMode, false)

		urls := appConfig.Screenshots.URLs
		if urlFile != "" {
			fileURLs, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}
			urls = fileURLs
		}

		ctx := signalContext()

		batch := core.NewScreenshotBatch(
			urls,
			appConfig.Scrape.OutputDir,
			appConfig.Scrape,
			appConfig.Screenshots.Concurrency,
		)

		if _, err := batch.Run(ctx); err != nil {
			return fmt.Errorf("批量截图失败: %w", err)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "显示支持的文件类型",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("==================================================")
		fmt.Println("📋 支持识别的可下载文件类型")
		fmt.Println("==================================================")
		for i, ext := range models.DownloadableExtensions {
			fmt.Printf("  %-6s", strings.ToUpper(ext))
			if (i+1)%6 == 0 {
				fmt.Println()
			}
		}
		fmt.Println()
		fmt.Println("==================================================")
		fmt.Println("字节签名校验: PDF, JPG/JPEG, PNG, MP3, FLAC, WAV")
		fmt.Println("其余类型按声称的扩展名保存")
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "预下载受控浏览器",
	Long:  "下载抓取所需的浏览器二进制。首次scrape时也会自动下载,此命令用于提前准备。",
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.Info("🚀 开始下载浏览器...")

		browser := launcher.NewBrowser()
		binPath, err := browser.Get()
		if err != nil {
			return fmt.Errorf("下载浏览器失败: %w", err)
		}

		utils.Infof("✅ 浏览器已就绪: %s", binPath)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webscrape %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// signalContext 返回随Ctrl+C/SIGTERM取消的context
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		utils.Warnf("\n收到中断信号: %v, 正在优雅关闭...", sig)
		cancel()
	}()

	return ctx
}

// printSummary 打印抓取结果摘要
func printSummary(result *models.ScrapeResult) {
	fmt.Println("\n==================================================")
	fmt.Println("📊 抓取结果")
	fmt.Println("==================================================")
	fmt.Printf("标题: %s\n", result.Title)
	fmt.Printf("策略: %s\n", result.Strategy)
	if len(result.Cards) > 0 {
		fmt.Printf("✅ 卡片数: %d\n", len(result.Cards))
	}
	fmt.Printf("✅ 文件引用: %d\n", len(result.Files))
	fmt.Printf("✅ 图片: %d\n", len(result.Images))
	fmt.Printf("✅ 链接: %d\n", len(result.Links))
	if result.Downloads != nil {
		tally := result.Downloads.Tally
		fmt.Printf("📥 下载: 成功=%d, 修正=%d, 失败=%d\n", tally.Saved, tally.Corrected, tally.Failed)
	}
	if result.ScreenshotPath != "" {
		fmt.Printf("📷 截图: %s\n", result.ScreenshotPath)
	}
	fmt.Printf("⏱️  耗时: %.2f秒\n", result.Duration)
	fmt.Println("==================================================")
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证头部配置文件正确性")

	// 抓取参数
	scrapeCmd.Flags().BoolVarP(&download, "download", "d", false, "下载页面上发现的文件")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录 (默认: ~/Downloads/web-scraper)")
	scrapeCmd.Flags().BoolVar(&debugMode, "debug", false, "调试模式: 显示浏览器窗口")
	scrapeCmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "页面导航超时(秒)")
	scrapeCmd.Flags().IntVar(&settleMillis, "settle", -1, "页面加载后的静置时间(毫秒)")
	scrapeCmd.Flags().StringVarP(&mode, "mode", "m", "", "提取模式 (dynamic|static)")

	// 批量截图参数
	screenshotsCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	screenshotsCmd.Flags().BoolVar(&debugMode, "debug", false, "调试模式: 显示浏览器窗口")
	screenshotsCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径 (覆盖配置文件的screenshots.urls)")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(screenshotsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// ResultsFileName 结构化结果文件名(每次运行覆盖)
	ResultsFileName = "scrape-results.json"

	// ScreenshotFileName 整页截图文件名(每次运行覆盖)
	ScreenshotFileName = "page-screenshot.png"
)

// ScrapeConfig 单次抓取的运行配置
type ScrapeConfig struct {
	// Timeout 页面导航超时(秒) (默认:60)
	Timeout int `json:"timeout" mapstructure:"timeout"`

	// SettleMillis 页面加载后的静置时间(毫秒),等待客户端渲染完成 (默认:1500)
	SettleMillis int `json:"settle_ms" mapstructure:"settle_ms"`

	// Debug 调试模式: 浏览器窗口可见 (默认:false)
	Debug bool `json:"debug" mapstructure:"debug"`

	// Download 是否下载发现的文件 (默认:false)
	Download bool `json:"download" mapstructure:"download"`

	// OutputDir 输出目录(截图、结果文件、下载文件)
	OutputDir string `json:"output_dir" mapstructure:"output_dir"`

	// Mode 提取模式 (dynamic|static) (默认:dynamic)
	Mode string `json:"mode" mapstructure:"mode"`
}

// Validate 验证配置
func (c *ScrapeConfig) Validate() error {
	if c.Timeout < 1 || c.Timeout > 600 {
		return fmt.Errorf("导航超时必须在1-600秒之间,当前值: %d", c.Timeout)
	}
	if c.SettleMillis < 0 || c.SettleMillis > 60000 {
		return fmt.Errorf("静置时间必须在0-60000毫秒之间,当前值: %d", c.SettleMillis)
	}
	if c.Mode != "dynamic" && c.Mode != "static" {
		return fmt.Errorf("无效的提取模式: %s (有效值: dynamic, static)", c.Mode)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("输出目录不能为空")
	}
	return nil
}

// ScrapeResult 单次抓取的完整结果
// 序列化到 scrape-results.json,JSON结构兼容:
// { title, cards?, files: [{name,url}], images: [{url,alt}], links: [{url,text}] }
type ScrapeResult struct {
	// RunID 运行唯一ID
	RunID string `json:"run_id"`

	// TargetURL 目标URL
	TargetURL string `json:"target_url"`

	// Strategy 使用的提取策略名称
	Strategy string `json:"strategy"`

	Title   string          `json:"title"`
	Excerpt string          `json:"excerpt,omitempty"`
	Cards   []Card          `json:"cards,omitempty"`
	Files   []FileReference `json:"files"`
	Images  []Image         `json:"images"`
	Links   []Link          `json:"links"`

	// Downloads 下载阶段报告(仅下载模式)
	Downloads *DownloadReport `json:"downloads,omitempty"`

	// ScreenshotPath 整页截图路径
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	ScrapedAt time.Time `json:"scraped_at"`
	Duration  float64   `json:"duration"` // 秒
}

// NewScrapeResult 由页面快照构建结果对象
func NewScrapeResult(targetURL string, strategy string, snapshot *PageSnapshot) *ScrapeResult {
	r := &ScrapeResult{
		RunID:     uuid.New().String(),
		TargetURL: targetURL,
		Strategy:  strategy,
		ScrapedAt: time.Now(),
	}
	if snapshot != nil {
		r.Title = snapshot.Title
		r.Excerpt = snapshot.Excerpt
		r.Cards = snapshot.Cards
		r.Files = snapshot.Files
		r.Images = snapshot.Images
		r.Links = snapshot.Links
	}
	// JSON中保持空数组而非null,方便下游消费
	if r.Files == nil {
		r.Files = []FileReference{}
	}
	if r.Images == nil {
		r.Images = []Image{}
	}
	if r.Links == nil {
		r.Links = []Link{}
	}
	return r
}

// ToJSON 序列化为JSON
func (r *ScrapeResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *ScrapeResult) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

package scrapers

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/orbruno/web-scraper-cli/internal/models"
)

// Options 单次提取的运行参数
type Options struct {
	// SettleTime 页面加载完成后的额外等待时间
	// 给前端框架渲染和懒加载留出余量
	SettleTime time.Duration

	// Timeout 整体提取超时
	Timeout time.Duration

	// Debug 调试模式,输出更详细的中间结果
	Debug bool
}

// Strategy 页面提取策略接口
// 每种策略负责一类页面:识别文件引用、收集页面元数据
type Strategy interface {
	// Name 返回策略名称,写入最终结果的strategy字段
	Name() string

	// Extract 在已导航完成的页面上执行提取
	// 返回页面快照和待下载的文件候选列表
	Extract(page *rod.Page, opts Options) (*models.PageSnapshot, []models.FileCandidate, error)
}

// Predicate 根据目标URL判断策略是否适用
type Predicate func(target *url.URL) bool

// registration 一条策略注册记录
type registration struct {
	matches  Predicate
	strategy Strategy
}

// Registry 策略注册表
// 按注册顺序匹配,第一个谓词命中的策略生效,全部未命中时回落到通用策略
type Registry struct {
	entries  []registration
	fallback Strategy
}

// NewRegistry 创建带默认注册项的策略注册表
// 内置TaskCards专用策略,通用策略作为兜底
func NewRegistry() *Registry {
	r := &Registry{
		fallback: NewGenericStrategy(),
	}
	r.Register(isTaskCardsHost, NewTaskCardsStrategy())
	return r
}

// Register 注册一条 (谓词, 策略) 记录
// 注册顺序即匹配优先级
func (r *Registry) Register(matches Predicate, strategy Strategy) {
	r.entries = append(r.entries, registration{
		matches:  matches,
		strategy: strategy,
	})
}

// Select 为目标URL选择提取策略
// URL解析失败或无谓词命中时返回通用策略
func (r *Registry) Select(rawURL string) Strategy {
	target, err := url.Parse(rawURL)
	if err != nil {
		return r.fallback
	}

	for _, entry := range r.entries {
		if entry.matches(target) {
			return entry.strategy
		}
	}
	return r.fallback
}

// isTaskCardsHost 判断目标是否为TaskCards页面
func isTaskCardsHost(target *url.URL) bool {
	host := strings.ToLower(target.Hostname())
	return host == "taskcards.de" || strings.HasSuffix(host, ".taskcards.de")
}

package scrapers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
	"golang.org/x/net/html"
)

const (
	// maxClickCandidates 交互式发现阶段最多点击的元素数
	// 每次点击都可能弹出预览层,控制成本和副作用
	maxClickCandidates = 3

	// clickCaptureTimeout 单次点击后等待网络捕获的超时
	clickCaptureTimeout = 5 * time.Second

	// scrollRounds 懒加载触发的滚动轮数
	scrollRounds = 5

	// scrollPause 每轮滚动后的等待时间
	scrollPause = 500 * time.Millisecond
)

// storageURLPattern 匹配云存储直链
var storageURLPattern = regexp.MustCompile(
	`https://firebasestorage\.googleapis\.com/[^\s"'<>\\]+`)

// TaskCardsStrategy TaskCards看板专用提取策略
// 看板上的附件URL藏在组件状态和懒加载的DOM里,分被动发现和交互发现两个阶段
type TaskCardsStrategy struct{}

// NewTaskCardsStrategy 创建TaskCards策略
func NewTaskCardsStrategy() *TaskCardsStrategy {
	return &TaskCardsStrategy{}
}

// Name 返回策略名称
func (ts *TaskCardsStrategy) Name() string {
	return "taskcards"
}

// Extract 提取看板快照和附件候选
// 流程:
//  1. 滚动触发懒加载
//  2. 收集标题、摘要、卡片文本和基础链接
//  3. 被动发现: 扫描DOM属性、组件状态和全文档,找存储直链
//  4. aria-label扫描: 找到"看得见文件名但没有URL"的附件元素
//  5. 交互发现: 对无URL的候选逐个点击,从网络响应中捕获直链
func (ts *TaskCardsStrategy) Extract(page *rod.Page, opts Options) (*models.PageSnapshot, []models.FileCandidate, error) {
	if opts.SettleTime > 0 {
		time.Sleep(opts.SettleTime)
	}

	ts.scrollThroughBoard(page)

	snapshot, err := ts.collectSnapshot(page)
	if err != nil {
		return nil, nil, err
	}

	// 被动发现: 不触碰页面,只读DOM和组件状态
	candidates := ts.passiveDiscovery(page, opts.Debug)

	// aria-label扫描: 附件元素的可见文件名
	labeled := ts.scanAriaLabels(page)

	// 被动阶段已覆盖的文件名不再需要点击
	resolved := make(map[string]bool)
	for _, c := range candidates {
		resolved[c.Name] = true
	}

	var pending []models.FileCandidate
	for _, c := range labeled {
		if !resolved[c.Name] {
			pending = append(pending, c)
		}
	}

	// 交互发现: 点击仍未拿到URL的附件元素
	// 点击后仍未捕获到直链的附件以无URL候选保留,漏捕的文件不能凭空消失
	if len(pending) > 0 {
		utils.Infof("🖱️ 交互式发现: %d个附件缺少直链,尝试点击捕获", len(pending))
		captured := ts.interactiveDiscovery(page, pending)
		candidates = append(candidates, mergeUncaptured(pending, captured)...)
	}

	candidates = dedupCandidates(candidates)

	for _, c := range candidates {
		snapshot.Files = append(snapshot.Files, models.FileReference{
			Name:         c.Name,
			URL:          c.URL,
			DeclaredType: strings.TrimPrefix(strings.ToLower(models.FileExtensionPattern.FindString(c.Name)), "."),
		})
	}

	utils.Infof("📊 看板提取完成: 卡片=%d, 文件=%d, 图片=%d, 链接=%d",
		len(snapshot.Cards), len(snapshot.Files), len(snapshot.Images), len(snapshot.Links))

	return snapshot, candidates, nil
}

// scrollThroughBoard 滚动整个看板触发懒加载
// 看板区域可能横向滚动,页面本体可能纵向滚动,两个方向都推到底
func (ts *TaskCardsStrategy) scrollThroughBoard(page *rod.Page) {
	for i := 0; i < scrollRounds; i++ {
		_, err := page.Evaluate(&rod.EvalOptions{
			JS: `() => {
				window.scrollTo(0, document.body.scrollHeight);

				var containers = document.querySelectorAll('[class*="board"], [class*="list"], [class*="column"]');
				for (var i = 0; i < containers.length; i++) {
					var el = containers[i];
					if (el.scrollWidth > el.clientWidth) {
						el.scrollLeft = el.scrollWidth;
					}
					if (el.scrollHeight > el.clientHeight) {
						el.scrollTop = el.scrollHeight;
					}
				}
				return true;
			}`,
		})
		if err != nil {
			utils.Debugf("滚动脚本执行失败: %v", err)
			return
		}
		time.Sleep(scrollPause)
	}
}

// collectSnapshot 收集标题、摘要、卡片文本、图片和链接
func (ts *TaskCardsStrategy) collectSnapshot(page *rod.Page) (*models.PageSnapshot, error) {
	result, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			var title = document.title || '';

			var bodyText = document.body ? (document.body.innerText || '') : '';
			var excerpt = bodyText.replace(/\s+/g, ' ').trim();

			var cardElements = document.querySelectorAll('[class*="card"]');
			var cards = [];
			var seenCards = {};
			for (var i = 0; i < cardElements.length; i++) {
				var text = (cardElements[i].innerText || '').replace(/\s+/g, ' ').trim();
				if (text && text.length > 1 && !seenCards[text]) {
					seenCards[text] = true;
					cards.push(text);
				}
			}

			var anchors = document.querySelectorAll('a[href]');
			var links = [];
			for (var j = 0; j < anchors.length; j++) {
				var href = anchors[j].href;
				if (href && (href.indexOf('http://') === 0 || href.indexOf('https://') === 0)) {
					links.push({
						url: href,
						text: (anchors[j].innerText || '').replace(/\s+/g, ' ').trim()
					});
				}
			}

			var imgElements = document.querySelectorAll('img[src]');
			var images = [];
			for (var k = 0; k < imgElements.length; k++) {
				var src = imgElements[k].src;
				if (src && src.indexOf('data:') !== 0) {
					images.push({
						url: src,
						alt: imgElements[k].alt || ''
					});
				}
			}

			return { title: title, excerpt: excerpt, cards: cards, links: links, images: images };
		}`,
	})
	if err != nil {
		return nil, fmt.Errorf("执行看板提取脚本失败: %w", err)
	}

	snapshot := &models.PageSnapshot{
		Title: result.Value.Get("title").Str(),
	}

	snapshot.Excerpt = models.TruncateExcerpt(result.Value.Get("excerpt").Str())

	for _, item := range result.Value.Get("cards").Arr() {
		if text := item.Str(); text != "" {
			snapshot.Cards = append(snapshot.Cards, models.Card{Text: text})
		}
	}

	seen := make(map[string]bool)
	for _, item := range result.Value.Get("links").Arr() {
		linkURL := item.Get("url").Str()
		if linkURL == "" || seen[linkURL] {
			continue
		}
		seen[linkURL] = true
		snapshot.Links = append(snapshot.Links, models.Link{
			URL:  linkURL,
			Text: item.Get("text").Str(),
		})
	}

	for _, item := range result.Value.Get("images").Arr() {
		imgURL := item.Get("url").Str()
		if imgURL == "" {
			continue
		}
		snapshot.Images = append(snapshot.Images, models.Image{
			URL: imgURL,
			Alt: item.Get("alt").Str(),
		})
	}

	return snapshot, nil
}

// passiveDiscovery 不交互的直链发现
// 依次检查: data-*属性、锚点href、框架组件内部状态、带下载标记的图片src
// 最后对整个文档做一次正则兜底扫描
func (ts *TaskCardsStrategy) passiveDiscovery(page *rod.Page, debug bool) []models.FileCandidate {
	var candidates []models.FileCandidate

	result, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			var found = [];

			function record(url, method) {
				if (url && url.indexOf('firebasestorage.googleapis.com') !== -1) {
					found.push({ url: url, method: method });
				}
			}

			// 1. data-*属性
			var dataElements = document.querySelectorAll('*');
			for (var i = 0; i < dataElements.length; i++) {
				var attrs = dataElements[i].attributes;
				for (var a = 0; a < attrs.length; a++) {
					if (attrs[a].name.indexOf('data-') === 0) {
						record(attrs[a].value, 'data_attribute');
					}
				}
			}

			// 2. 直接指向存储的锚点
			var anchors = document.querySelectorAll('a[href]');
			for (var j = 0; j < anchors.length; j++) {
				record(anchors[j].href, 'anchor_href');
			}

			// 3. 框架组件内部状态 (挂在DOM节点上的__vue__引用)
			var all = document.querySelectorAll('*');
			for (var k = 0; k < all.length; k++) {
				var vue = all[k].__vue__;
				if (!vue) continue;
				try {
					var state = JSON.stringify(vue.$data || {});
					var matches = state.match(/https:\/\/firebasestorage\.googleapis\.com[^"\\]+/g);
					if (matches) {
						for (var m = 0; m < matches.length; m++) {
							record(matches[m], 'component_state');
						}
					}
				} catch (e) {
					// 组件状态可能含循环引用,跳过
				}
			}

			// 4. 带下载标记的图片src
			var imgs = document.querySelectorAll('img[src]');
			for (var n = 0; n < imgs.length; n++) {
				var src = imgs[n].src;
				if (src && src.indexOf('alt=media') !== -1) {
					record(src, 'image_source');
				}
			}

			return found;
		}`,
	})
	if err != nil {
		utils.Warnf("被动发现脚本执行失败: %v", err)
	} else {
		for _, item := range result.Value.Arr() {
			rawURL := item.Get("url").Str()
			if !isStorageFileURL(rawURL) {
				continue
			}
			candidates = append(candidates, models.FileCandidate{
				Name:   utils.ResolveFilename(rawURL),
				URL:    rawURL,
				Method: models.DiscoveryMethod(item.Get("method").Str()),
			})
		}
	}

	// 兜底: 全文档正则扫描
	// JS状态里取不到的URL可能以转义形式出现在序列化的页面数据里
	pageHTML, err := page.HTML()
	if err != nil {
		utils.Warnf("获取页面HTML失败: %v", err)
		return candidates
	}

	for _, match := range storageURLPattern.FindAllString(pageHTML, -1) {
		rawURL := html.UnescapeString(match)
		rawURL = strings.ReplaceAll(rawURL, `\u0026`, "&")
		if !isStorageFileURL(rawURL) {
			continue
		}
		candidates = append(candidates, models.FileCandidate{
			Name:   utils.ResolveFilename(rawURL),
			URL:    rawURL,
			Method: models.MethodDocumentScan,
		})
	}

	if debug {
		for _, c := range candidates {
			utils.Debugf("被动发现 [%s]: %s -> %s", c.Method, c.Name, c.URL)
		}
	}

	return candidates
}

// scanAriaLabels 扫描带文件名形态aria-label的可见元素
// 这些元素是附件的可点击入口,记录其页面坐标供交互发现使用
func (ts *TaskCardsStrategy) scanAriaLabels(page *rod.Page) []models.FileCandidate {
	elements, err := page.Elements("[aria-label]")
	if err != nil {
		utils.Warnf("查询aria-label元素失败: %v", err)
		return nil
	}

	var candidates []models.FileCandidate
	for _, el := range elements {
		label, err := el.Attribute("aria-label")
		if err != nil || label == nil {
			continue
		}

		name := utils.SanitizeFilename(strings.TrimSpace(*label))
		if name == "" || !models.FileExtensionPattern.MatchString(name) {
			continue
		}

		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}

		candidate := models.FileCandidate{
			Name:   name,
			Method: models.MethodComponentState,
		}

		// 记录一个元素内部的可点击坐标
		if shape, err := el.Shape(); err == nil {
			if point := shape.OnePointInside(); point != nil {
				candidate.X = point.X
				candidate.Y = point.Y
			}
		}

		candidates = append(candidates, candidate)
	}

	// 同一个附件可能对应多个带label的元素(缩略图和文件名各一个)
	return dedupByName(candidates)
}

// interactiveDiscovery 点击附件元素并从网络响应中捕获存储直链
// 每个候选: 点击 -> select等待{捕获成功, 超时} -> Escape关闭可能弹出的预览层
func (ts *TaskCardsStrategy) interactiveDiscovery(page *rod.Page, pending []models.FileCandidate) []models.FileCandidate {
	if len(pending) > maxClickCandidates {
		utils.Warnf("附件候选过多,仅点击前%d个", maxClickCandidates)
		pending = pending[:maxClickCandidates]
	}

	captured := make(chan string, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventPage := page.Context(ctx)
	go eventPage.EachEvent(func(e *proto.NetworkResponseReceived) {
		if isStorageFileURL(e.Response.URL) {
			select {
			case captured <- e.Response.URL:
			default:
			}
		}
	})()

	var results []models.FileCandidate
	for _, candidate := range pending {
		if err := ts.clickCandidate(page, candidate); err != nil {
			utils.Warnf("点击附件失败 [%s]: %v", candidate.Name, err)
			continue
		}

		select {
		case storageURL := <-captured:
			utils.Infof("📥 捕获附件直链: %s", candidate.Name)
			results = append(results, models.FileCandidate{
				Name:   candidate.Name,
				URL:    storageURL,
				Method: models.MethodNetworkCapture,
			})
		case <-time.After(clickCaptureTimeout):
			utils.Warnf("点击后未捕获到直链: %s", candidate.Name)
		}

		// 关闭点击可能打开的预览层
		if err := page.Keyboard.Type(input.Escape); err != nil {
			utils.Debugf("发送Escape失败: %v", err)
		}
		time.Sleep(300 * time.Millisecond)
	}

	return results
}

// clickCandidate 滚动到候选元素位置并单击
// 优先用aria-label重新定位元素,坐标只作为定位依据的记录
func (ts *TaskCardsStrategy) clickCandidate(page *rod.Page, candidate models.FileCandidate) error {
	elements, err := page.Elements("[aria-label]")
	if err != nil {
		return fmt.Errorf("查询元素失败: %w", err)
	}

	for _, el := range elements {
		label, err := el.Attribute("aria-label")
		if err != nil || label == nil {
			continue
		}
		if utils.SanitizeFilename(strings.TrimSpace(*label)) != candidate.Name {
			continue
		}

		if err := el.ScrollIntoView(); err != nil {
			return fmt.Errorf("滚动到元素失败: %w", err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("点击元素失败: %w", err)
		}
		return nil
	}

	return fmt.Errorf("未找到aria-label匹配的元素: %s", candidate.Name)
}

// isStorageFileURL 判断URL是否为带下载标记的云存储直链
// 纯存储域名还不够,必须带文件相关标记,否则会把预览图误当附件
func isStorageFileURL(rawURL string) bool {
	if !strings.Contains(rawURL, "firebasestorage.googleapis.com") {
		return false
	}
	return strings.Contains(rawURL, "alt=media") ||
		strings.Contains(rawURL, "response-content-disposition") ||
		strings.Contains(strings.ToLower(rawURL), "filename=") ||
		strings.Contains(strings.ToLower(rawURL), "filename%3d")
}

// mergeUncaptured 合并交互捕获结果与未捕获的附件
// 拿到直链的用捕获记录,没拿到的以无URL候选保留,下载阶段据此统计漏捕率
func mergeUncaptured(pending, captured []models.FileCandidate) []models.FileCandidate {
	capturedNames := make(map[string]bool)
	for _, c := range captured {
		capturedNames[c.Name] = true
	}

	merged := append([]models.FileCandidate{}, captured...)
	for _, c := range pending {
		if capturedNames[c.Name] {
			continue
		}
		merged = append(merged, models.FileCandidate{
			Name:   c.Name,
			Method: c.Method,
		})
	}
	return merged
}

// dedupByName 按文件名去重,保留首个出现的候选
func dedupByName(candidates []models.FileCandidate) []models.FileCandidate {
	seen := make(map[string]bool)
	var result []models.FileCandidate
	for _, c := range candidates {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		result = append(result, c)
	}
	return result
}

// dedupCandidates 按"文件名+URL"去重,保持首次发现的顺序
func dedupCandidates(candidates []models.FileCandidate) []models.FileCandidate {
	seen := make(map[string]bool)
	var result []models.FileCandidate
	for _, c := range candidates {
		key := c.Name + "|" + c.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, c)
	}
	return result
}

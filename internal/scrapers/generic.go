package scrapers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
)

// GenericStrategy 通用页面提取策略
// 适用于任意页面:扫描锚点中的可下载扩展名,收集标题、摘要、图片和链接
type GenericStrategy struct{}

// NewGenericStrategy 创建通用策略
func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{}
}

// Name 返回策略名称
func (gs *GenericStrategy) Name() string {
	return "generic"
}

// Extract 提取页面快照和文件候选
// 等待settle时间让前端渲染完成,然后一次JS求值收集全部数据
func (gs *GenericStrategy) Extract(page *rod.Page, opts Options) (*models.PageSnapshot, []models.FileCandidate, error) {
	if opts.SettleTime > 0 {
		time.Sleep(opts.SettleTime)
	}

	result, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			var title = document.title || '';

			// 摘要优先取常见正文容器,找不到再退回整个body
			var regions = ['article', 'main', '[role="main"]', '.content', '#content'];
			var excerpt = '';
			for (var r = 0; r < regions.length; r++) {
				var region = document.querySelector(regions[r]);
				if (region) {
					excerpt = (region.innerText || '').replace(/\s+/g, ' ').trim();
					if (excerpt) break;
				}
			}
			if (!excerpt) {
				var bodyText = document.body ? (document.body.innerText || '') : '';
				excerpt = bodyText.replace(/\s+/g, ' ').trim();
			}

			var anchors = document.querySelectorAll('a[href]');
			var links = [];
			for (var i = 0; i < anchors.length; i++) {
				var href = anchors[i].href;
				if (href && (href.indexOf('http://') === 0 || href.indexOf('https://') === 0)) {
					links.push({
						url: href,
						text: (anchors[i].innerText || '').replace(/\s+/g, ' ').trim()
					});
				}
			}

			var imgElements = document.querySelectorAll('img[src]');
			var images = [];
			for (var j = 0; j < imgElements.length; j++) {
				var src = imgElements[j].src;
				if (src && src.indexOf('data:') !== 0) {
					images.push({
						url: src,
						alt: imgElements[j].alt || ''
					});
				}
			}

			return { title: title, excerpt: excerpt, links: links, images: images };
		}`,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("执行页面提取脚本失败: %w", err)
	}

	snapshot := &models.PageSnapshot{
		Title: result.Value.Get("title").Str(),
	}

	snapshot.Excerpt = models.TruncateExcerpt(result.Value.Get("excerpt").Str())

	// 锚点去重后二分: 带可下载扩展名的归为文件,其余归为链接
	seen := make(map[string]bool)
	var candidates []models.FileCandidate

	for _, item := range result.Value.Get("links").Arr() {
		linkURL := item.Get("url").Str()
		if linkURL == "" || seen[linkURL] {
			continue
		}
		seen[linkURL] = true

		if models.HasDownloadableExtension(linkURL) {
			name := utils.ResolveFilename(linkURL)
			candidates = append(candidates, models.FileCandidate{
				Name:   name,
				URL:    linkURL,
				Method: models.MethodGenericAnchor,
			})
			snapshot.Files = append(snapshot.Files, models.FileReference{
				Name:         name,
				URL:          linkURL,
				DeclaredType: strings.TrimPrefix(strings.ToLower(models.FileExtensionPattern.FindString(linkURL)), "."),
			})
			continue
		}

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

	utils.Infof("📊 通用提取完成: 文件=%d, 图片=%d, 链接=%d",
		len(snapshot.Files), len(snapshot.Images), len(snapshot.Links))

	return snapshot, candidates, nil
}

package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbruno/web-scraper-cli/internal/fetch"
	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/orbruno/web-scraper-cli/internal/utils"
)

// Downloader 文件候选的批量下载器
// 逐个下载、按字节签名校验类型,单个失败不影响后续文件
type Downloader struct {
	fetcher   *fetch.Fetcher
	outputDir string
}

// NewDownloader 创建批量下载器
func NewDownloader(fetcher *fetch.Fetcher, outputDir string) *Downloader {
	return &Downloader{
		fetcher:   fetcher,
		outputDir: outputDir,
	}
}

// DownloadAll 下载所有候选文件并生成批次报告
// discovered为页面上发现的文件元素总数(含未捕获到URL的)
func (d *Downloader) DownloadAll(ctx context.Context, candidates []models.FileCandidate, discovered int) *models.DownloadReport {
	report := &models.DownloadReport{
		Tally: models.DownloadTally{
			Discovered: discovered,
		},
		Outcomes: []models.DownloadOutcome{},
	}

	var withURL []models.FileCandidate
	for _, c := range candidates {
		if c.URL != "" {
			withURL = append(withURL, c)
		}
	}
	report.Tally.Captured = len(withURL)

	if len(withURL) == 0 {
		utils.Warn("没有可下载的文件URL")
		report.Tips = report.Tally.Guidance()
		return report
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		utils.Errorf("创建下载目录失败: %v", err)
		for _, c := range withURL {
			outcome := d.failedOutcome(c, fmt.Errorf("创建下载目录失败: %w", err))
			report.Outcomes = append(report.Outcomes, outcome)
			report.Tally.Record(outcome.Status)
		}
		report.Tips = report.Tally.Guidance()
		return report
	}

	utils.Infof("🚀 开始下载 %d 个文件", len(withURL))
	bar := utils.NewProgressBar(len(withURL), "下载文件")

	usedNames := make(map[string]bool)
	for _, candidate := range withURL {
		outcome := d.downloadOne(ctx, candidate, usedNames)
		report.Outcomes = append(report.Outcomes, outcome)
		report.Tally.Record(outcome.Status)
		bar.Add(1)
	}
	fmt.Println()

	utils.Infof("📊 下载完成: 成功=%d, 修正=%d, 失败=%d (捕获率 %.0f%%)",
		report.Tally.Saved, report.Tally.Corrected, report.Tally.Failed,
		report.Tally.CaptureRatio()*100)

	report.Tips = report.Tally.Guidance()
	for _, tip := range report.Tips {
		utils.Infof("💡 %s", tip)
	}

	return report
}

// downloadOne 下载单个候选并做字节签名校验
// 任何错误都折叠进outcome,不向上传播
func (d *Downloader) downloadOne(ctx context.Context, candidate models.FileCandidate, usedNames map[string]bool) models.DownloadOutcome {
	name := candidate.Name
	if name == "" {
		name = utils.ResolveFilename(candidate.URL)
	}
	name = uniqueName(name, usedNames)

	dest := filepath.Join(d.outputDir, name)
	expected := utils.KindFromExtension(filepath.Ext(name))

	if _, err := d.fetcher.Fetch(ctx, candidate.URL, dest); err != nil {
		utils.Warnf("❌ 下载失败 [%s]: %v", name, err)
		return d.failedOutcome(candidate, err)
	}

	outcome := models.DownloadOutcome{
		ID:           uuid.New().String(),
		Name:         name,
		URL:          candidate.URL,
		FilePath:     dest,
		ExpectedKind: expected,
		DownloadedAt: time.Now(),
	}

	// 字节签名校验: 只信前12个字节,不信声称的扩展名
	detected, err := sniffFile(dest)
	if err != nil {
		utils.Debugf("读取文件签名失败 [%s]: %v", name, err)
		detected = models.KindUnknown
	}
	outcome.DetectedKind = detected

	switch {
	case detected == models.KindUnknown || expected == detected:
		// 签名未知时保留原名,签名一致时按原名保存
		outcome.Status = models.StatusSaved
		utils.Infof("📥 下载成功: %s", name)

	default:
		// 签名与声称类型不符,按真实类型重命名
		corrected := correctedName(name, detected)
		correctedPath := filepath.Join(d.outputDir, corrected)
		if err := os.Rename(dest, correctedPath); err != nil {
			utils.Warnf("重命名失败 [%s -> %s]: %v", name, corrected, err)
			outcome.Status = models.StatusSaved
		} else {
			outcome.FilePath = correctedPath
			outcome.Name = corrected
			outcome.Status = models.StatusCorrected
			utils.Warnf("⚠️ 类型不符已修正: %s -> %s (声称 %s, 实际 %s)",
				name, corrected, expected, detected)
		}
	}

	return outcome
}

// failedOutcome 构建失败结果
func (d *Downloader) failedOutcome(candidate models.FileCandidate, err error) models.DownloadOutcome {
	name := candidate.Name
	if name == "" {
		name = utils.ResolveFilename(candidate.URL)
	}
	return models.DownloadOutcome{
		ID:           uuid.New().String(),
		Name:         name,
		URL:          candidate.URL,
		ExpectedKind: utils.KindFromExtension(filepath.Ext(name)),
		DetectedKind: models.KindUnknown,
		Status:       models.StatusFailed,
		ErrorMsg:     err.Error(),
		DownloadedAt: time.Now(),
	}
}

// sniffFile 读取文件头部字节并判定内容类型
func sniffFile(path string) (models.ContentKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.KindUnknown, err
	}
	defer f.Close()

	buf := make([]byte, utils.SniffLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return models.KindUnknown, err
	}

	return utils.DetectKind(buf[:n]), nil
}

// correctedName 把文件名的扩展名替换为检测出的真实类型
func correctedName(name string, detected models.ContentKind) string {
	ext := utils.KindExtension(detected)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + ext
}

// uniqueName 同一批次内同名文件追加序号,避免相互覆盖
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		next := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !used[next] {
			used[next] = true
			return next
		}
	}
}

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orbruno/web-scraper-cli/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 结果报告生成器
// 负责把抓取结果落盘为 scrape-results.json
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// WriteResults 将完整抓取结果写入输出目录
// 文件名固定为 scrape-results.json,覆盖已有文件
func (r *Reporter) WriteResults(result *models.ScrapeResult) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	resultPath := filepath.Join(r.outputDir, models.ResultsFileName)

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(resultPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入结果文件失败: %w", err)
	}

	Infof("✅ 结果已保存: %s", resultPath)
	return resultPath, nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

package models

import "time"

// ContentKind 由字节签名判定的内容类型
type ContentKind string

const (
	KindPDF     ContentKind = "pdf"
	KindJPEG    ContentKind = "jpeg"
	KindPNG     ContentKind = "png"
	KindMP3     ContentKind = "mp3"
	KindFLAC    ContentKind = "flac"
	KindWAV     ContentKind = "wav"
	KindUnknown ContentKind = "unknown"
)

// DownloadStatus 单个文件的下载结果状态
type DownloadStatus string

const (
	// StatusSaved 按声称类型保存,签名一致
	StatusSaved DownloadStatus = "saved-as-expected"

	// StatusCorrected 签名与声称类型不符,已用检测出的扩展名重命名
	// (通常是平台返回了预览图而非原始文件)
	StatusCorrected DownloadStatus = "saved-with-corrected-extension"

	// StatusFailed 下载失败(HTTP错误或网络错误)
	StatusFailed DownloadStatus = "failed"
)

// DownloadOutcome 单个文件的下载结果
// 不变式: 落盘文件的扩展名始终与DetectedKind一致,即使与ExpectedKind矛盾
type DownloadOutcome struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`

	// FilePath 最终落盘路径(失败时为空)
	FilePath string `json:"file_path,omitempty"`

	// ExpectedKind 由声称扩展名推断的类型
	ExpectedKind ContentKind `json:"expected_kind"`

	// DetectedKind 由字节签名检测出的真实类型
	DetectedKind ContentKind `json:"detected_kind"`

	Status DownloadStatus `json:"status"`

	// ErrorMsg 失败原因(仅失败时)
	ErrorMsg string `json:"error_msg,omitempty"`

	DownloadedAt time.Time `json:"downloaded_at"`
}

// DownloadTally 下载批次统计
type DownloadTally struct {
	// Discovered 页面上发现的文件元素总数
	Discovered int `json:"discovered"`

	// Captured 成功获取到URL的文件数
	Captured int `json:"captured"`

	Saved     int `json:"saved"`     // 类型一致的成功下载
	Corrected int `json:"corrected"` // 扩展名已修正的下载
	Failed    int `json:"failed"`    // 失败数
}

// CaptureRatio 计算URL捕获率(捕获数/发现数)
// 发现数为0时返回0
func (t *DownloadTally) CaptureRatio() float64 {
	if t.Discovered == 0 {
		return 0
	}
	return float64(t.Captured) / float64(t.Discovered)
}

// Record 按结果状态累加计数
func (t *DownloadTally) Record(status DownloadStatus) {
	switch status {
	case StatusSaved:
		t.Saved++
	case StatusCorrected:
		t.Corrected++
	case StatusFailed:
		t.Failed++
	}
}

// Guidance 根据统计结果生成用户提示
// 签名URL会快速过期、部分平台只返回预览等是已知的环境限制,不视为缺陷
func (t *DownloadTally) Guidance() []string {
	var tips []string

	if t.Corrected > 0 {
		tips = append(tips,
			"部分文件实际内容与声称类型不符(通常是平台返回了预览图而非原始文件),已按真实类型重命名")
	}
	if t.Failed > 0 {
		tips = append(tips,
			"部分文件下载失败: 签名URL有效期很短,可能在下载前已过期;音频类文件在该平台上通常更容易完整获取")
	}
	if t.Discovered > t.Captured {
		tips = append(tips,
			"部分文件仅发现了名称而未捕获到下载URL: 交互式捕获依赖点击与响应之间的时序,漏捕是可接受的结果")
	}

	return tips
}

// DownloadReport 下载阶段的完整报告
type DownloadReport struct {
	Tally    DownloadTally     `json:"tally"`
	Outcomes []DownloadOutcome `json:"outcomes"`
	Tips     []string          `json:"tips,omitempty"`
}

package utils

import (
	"bytes"
	"strings"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

const (
	// SniffLength 签名检测所需的字节数
	// 分类结果只取决于文件的前12个字节,文件名和声称类型不参与判断
	SniffLength = 12
)

// DetectKind 根据魔数字节签名判定内容类型
// 输入不足12字节或无法匹配任何签名时返回 KindUnknown
// 纯函数,无副作用;是覆盖声称类型的最终依据
func DetectKind(data []byte) models.ContentKind {
	if len(data) < SniffLength {
		return models.KindUnknown
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return models.KindPDF
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return models.KindJPEG
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return models.KindPNG
	case bytes.HasPrefix(data, []byte("fLaC")):
		return models.KindFLAC
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return models.KindWAV
	case bytes.HasPrefix(data, []byte("ID3")):
		return models.KindMP3
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// 无ID3头的裸MPEG音频帧 (帧同步位 11111111 111xxxxx)
		return models.KindMP3
	default:
		return models.KindUnknown
	}
}

// KindExtension 返回内容类型对应的文件扩展名(含点号)
// KindUnknown 返回空字符串
func KindExtension(kind models.ContentKind) string {
	switch kind {
	case models.KindPDF:
		return ".pdf"
	case models.KindJPEG:
		return ".jpg"
	case models.KindPNG:
		return ".png"
	case models.KindMP3:
		return ".mp3"
	case models.KindFLAC:
		return ".flac"
	case models.KindWAV:
		return ".wav"
	default:
		return ""
	}
}

// KindFromExtension 由声称的扩展名推断期望类型
// jpg和jpeg归一化为同一类;无法识别的扩展名返回 KindUnknown
func KindFromExtension(ext string) models.ContentKind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return models.KindPDF
	case "jpg", "jpeg":
		return models.KindJPEG
	case "png":
		return models.KindPNG
	case "mp3":
		return models.KindMP3
	case "flac":
		return models.KindFLAC
	case "wav":
		return models.KindWAV
	default:
		return models.KindUnknown
	}
}

package utils

import "testing"

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			"filename参数字面量",
			"https://storage.example.com/v0/b/app/o/uploads%2Fabc?alt=media&response-content-disposition=attachment;filename=report.pdf",
			"report.pdf",
		},
		{
			"filename参数编码等号",
			"https://storage.example.com/v0/b/app/o/uploads%2Fabc?alt=media&filename%3Dsong.mp3",
			"song.mp3",
		},
		{
			"百分号编码的空格和圆括号",
			"https://storage.example.com/o/f?filename=Arbeitsblatt%20(Kopie).pdf",
			"Arbeitsblatt (Kopie).pdf",
		},
		{
			"filename后的参数截断",
			"https://storage.example.com/o/f?filename=notes.pdf&token=abc123",
			"notes.pdf",
		},
		{
			"路径最后一段",
			"https://example.com/files/document.docx",
			"document.docx",
		},
		{
			"UUID路径段补全扩展名",
			"https://storage.example.com/o/550e8400-e29b-41d4-a716-446655440000?alt=media&name=audio.mp3",
			"550e8400-e29b-41d4-a716-446655440000.mp3",
		},
		{
			"无任何可用信息",
			"https://example.com/",
			"unknown",
		},
		{
			"空URL",
			"",
			"unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFilename(tt.url)
			if got != tt.want {
				t.Errorf("ResolveFilename(%q) = %q, 期望 %q", tt.url, got, tt.want)
			}
		})
	}
}

// 文件名派生永远不能panic或返回空串
func TestResolveFilenameNeverEmpty(t *testing.T) {
	inputs := []string{
		"not-a-url",
		"://broken",
		"https://example.com/%zz%zz",
		"https://example.com/?filename=",
		"https://example.com/?filename=///",
	}

	for _, input := range inputs {
		got := ResolveFilename(input)
		if got == "" {
			t.Errorf("ResolveFilename(%q) 返回了空串", input)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"非法字符替换", `a<b>c:d.pdf`, "a_b_c_d.pdf"},
		{"路径遍历防御", "../../etc/passwd", "passwd"},
		{"首尾空白", "  notes.pdf  ", "notes.pdf"},
		{"正常文件名不变", "report-2024.pdf", "report-2024.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, 期望 %q", tt.input, got, tt.want)
			}
		})
	}
}

package scrapers

import (
	"testing"

	"github.com/orbruno/web-scraper-cli/internal/models"
)

// 点击后未捕获到直链的附件必须以无URL候选保留,不能从结果中消失
func TestMergeUncaptured(t *testing.T) {
	pending := []models.FileCandidate{
		{Name: "Arbeitsblatt.pdf", Method: models.MethodComponentState, X: 100, Y: 200},
		{Name: "song.mp3", Method: models.MethodComponentState, X: 300, Y: 400},
		{Name: "photo.jpg", Method: models.MethodComponentState},
	}
	captured := []models.FileCandidate{
		{Name: "song.mp3", URL: "https://firebasestorage.googleapis.com/v0/b/app/o/song.mp3?alt=media", Method: models.MethodNetworkCapture},
	}

	merged := mergeUncaptured(pending, captured)

	if len(merged) != 3 {
		t.Fatalf("合并后应有3个候选(1捕获+2未捕获), 得到: %d", len(merged))
	}

	// 捕获成功的保留捕获记录
	if merged[0].Name != "song.mp3" || merged[0].URL == "" {
		t.Errorf("捕获成功的候选应带URL: %+v", merged[0])
	}
	if merged[0].Method != models.MethodNetworkCapture {
		t.Errorf("捕获记录的发现方式错误: %s", merged[0].Method)
	}

	// 未捕获的以无URL候选保留
	byName := make(map[string]models.FileCandidate)
	for _, c := range merged {
		byName[c.Name] = c
	}
	for _, name := range []string{"Arbeitsblatt.pdf", "photo.jpg"} {
		c, ok := byName[name]
		if !ok {
			t.Fatalf("未捕获的附件%s不应消失", name)
		}
		if c.URL != "" {
			t.Errorf("未捕获的附件不应带URL: %+v", c)
		}
	}
}

func TestMergeUncaptured_AllCaptured(t *testing.T) {
	pending := []models.FileCandidate{
		{Name: "a.pdf", Method: models.MethodComponentState},
	}
	captured := []models.FileCandidate{
		{Name: "a.pdf", URL: "https://firebasestorage.googleapis.com/v0/b/app/o/a.pdf?alt=media", Method: models.MethodNetworkCapture},
	}

	merged := mergeUncaptured(pending, captured)
	if len(merged) != 1 {
		t.Fatalf("全部捕获时不应追加无URL候选, 得到: %d", len(merged))
	}
	if merged[0].URL == "" {
		t.Error("应保留捕获记录")
	}
}

// 同一附件对应多个带label的元素时只保留一个点击候选
func TestDedupByName(t *testing.T) {
	candidates := []models.FileCandidate{
		{Name: "Arbeitsblatt.pdf", Method: models.MethodComponentState, X: 100, Y: 200},
		{Name: "Arbeitsblatt.pdf", Method: models.MethodComponentState, X: 500, Y: 600},
		{Name: "song.mp3", Method: models.MethodComponentState},
	}

	deduped := dedupByName(candidates)

	if len(deduped) != 2 {
		t.Fatalf("按文件名去重后应剩2个, 得到: %d", len(deduped))
	}
	// 保留首个出现的元素坐标
	if deduped[0].X != 100 || deduped[0].Y != 200 {
		t.Errorf("应保留首个候选的坐标: %+v", deduped[0])
	}
}

package unit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbruno/web-scraper-cli/internal/config"
)

func TestHeaderConfigLoader_LoadConfig(t *testing.T) {
	t.Run("首次运行自动生成模板文件", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		loader := config.NewHeaderConfigLoader(configPath)

		if _, err := os.Stat(configPath); !os.IsNotExist(err) {
			t.Fatal("配置文件不应该存在")
		}

		cfg, err := loader.LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			t.Fatal("配置文件应该被自动生成")
		}
		if cfg == nil || cfg.Headers == nil {
			t.Fatal("Headers map应该被初始化")
		}
	})

	t.Run("加载已有配置", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		testConfig := `headers:
  Referer: "https://taskcards.de/#/board/abc"
  X-Run-Label: "weekly board export"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}

		cfg, err := config.NewHeaderConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		// viper会将键名转换为小写
		if cfg.Headers["referer"] != "https://taskcards.de/#/board/abc" {
			t.Errorf("期望 referer 已加载, 实际='%s'", cfg.Headers["referer"])
		}
		if cfg.Headers["x-run-label"] != "weekly board export" {
			t.Errorf("期望 x-run-label 已加载, 实际='%s'", cfg.Headers["x-run-label"])
		}
	})

	t.Run("YAML格式错误返回错误", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		badConfig := `headers:
  Referer: "https://taskcards.de
  X-Broken: missing quote
`
		if err := os.WriteFile(configPath, []byte(badConfig), 0644); err != nil {
			t.Fatalf("写入错误配置失败: %v", err)
		}

		if _, err := config.NewHeaderConfigLoader(configPath).LoadConfig(); err == nil {
			t.Fatal("期望返回错误,但成功了")
		}
	})

	t.Run("headers键为空时初始化空map", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		if err := os.WriteFile(configPath, []byte("headers:"), 0644); err != nil {
			t.Fatalf("写入空配置失败: %v", err)
		}

		cfg, err := config.NewHeaderConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载空配置失败: %v", err)
		}
		if cfg.Headers == nil {
			t.Fatal("Headers map应该被初始化为空map")
		}
	})

	t.Run("超过大小上限的文件被拒绝", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "headers.yaml")
		large := make([]byte, config.MaxConfigFileSize+1)
		if err := os.WriteFile(configPath, large, 0644); err != nil {
			t.Fatalf("写入大配置失败: %v", err)
		}

		if _, err := config.NewHeaderConfigLoader(configPath).LoadConfig(); err == nil {
			t.Fatal("期望超大配置文件被拒绝,但成功了")
		}
	})
}

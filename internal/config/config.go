package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/char5742/fbtouch/internal/device"
)

const appName = "fbtouch"

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Touch TouchConfig `toml:"touch" json:"touch"`
	API   APIConfig   `toml:"api" json:"api"`
	Log   LogConfig   `toml:"log" json:"log"`
}

// TouchConfig はタッチデバイスの設定
type TouchConfig struct {
	// 空の場合は/dev/input/event*から自動検出する
	Device          string `toml:"device" json:"device"`
	Rotate          int    `toml:"rotate" json:"rotate"`
	CalibrationFile string `toml:"calibration_file" json:"calibration_file"`
	Watch           bool   `toml:"watch" json:"watch"`

	Virtual      bool         `toml:"virtual" json:"virtual"`
	UinputPath   string       `toml:"uinput_path" json:"uinput_path"`
	VirtualRange device.Range `toml:"virtual_range" json:"virtual_range"`
}

// APIConfig はHTTP APIサーバーの設定
type APIConfig struct {
	Port        int  `toml:"port" json:"port"`
	OpenBrowser bool `toml:"open_browser" json:"open_browser"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `toml:"level" json:"level"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Touch: TouchConfig{
			Device:          "",
			Rotate:          0,
			CalibrationFile: "/etc/pointercal",
			Watch:           true,
			UinputPath:      "/dev/uinput",
			VirtualRange: device.Range{
				XMin: 0,
				XMax: 4095,
				YMin: 0,
				YMax: 4095,
			},
		},
		API: APIConfig{
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetDefaultConfigDir はユーザー設定ディレクトリ配下のアプリ用ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultConfigPath はデフォルトの設定ファイルパスを返す
func DefaultConfigPath() string {
	dir, err := GetDefaultConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig は設定ファイルから設定を読み込む。
// ファイルが存在しない場合はデフォルト設定を返す
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, errors.Wrapf(err, "設定ファイル %s の解析に失敗しました", configPath)
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.Wrap(err, "設定ディレクトリを作成できませんでした")
	}

	f, err := os.Create(configPath)
	if err != nil {
		return errors.Wrap(err, "設定ファイルを作成できませんでした")
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/char5742/fbtouch/internal/config"
)

var (
	configPath = config.DefaultConfigPath()
	logLevel   = ""

	// コマンドラインで設定を上書きする値
	devicePath      string
	rotate          int
	calibrationFile string
	virtual         bool
)

func setupLogger(cfg *config.Config) error {
	lv := cfg.Log.Level
	if logLevel != "" {
		lv = logLevel
	}
	level, err := logrus.ParseLevel(lv)
	if err != nil {
		return fmt.Errorf("ログレベルの解析に失敗しました: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.StampMilli,
		})
	}
	return nil
}

// loadConfig は設定ファイルを読み込み、フラグで指定された値を上書きする
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Touch.Device = devicePath
	}
	if flags.Changed("rotate") {
		cfg.Touch.Rotate = rotate
	}
	if flags.Changed("calibration") {
		cfg.Touch.CalibrationFile = calibrationFile
	}
	if flags.Changed("virtual") {
		cfg.Touch.Virtual = virtual
	}

	if err := setupLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fbtouch",
		Short: "fbtouch injects calibrated touches into a Linux touchscreen",
		Long: `fbtouch injects remote pointer input into a Linux multi-touch digitizer.

Screen coordinates are mapped to touch coordinates with a tslib pointercal
calibration file and written to the event device as type-B multi-touch frames.`,
		SilenceUsage: true,
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVar(&configPath, "config", configPath, "設定ファイルのパス")
	globalFlags.StringVarP(&logLevel, "log-level", "l", "", "ログレベル (trace, debug, info, warn, error)")
	globalFlags.StringVarP(&devicePath, "device", "d", "", "タッチデバイスのパス (例: /dev/input/event2)")
	globalFlags.IntVar(&rotate, "rotate", 0, "画面の回転 (記録のみ)")
	globalFlags.StringVar(&calibrationFile, "calibration", "", "pointercalファイルのパス")
	globalFlags.BoolVar(&virtual, "virtual", false, "uinputで仮想タッチスクリーンを作成する")

	cmd.AddCommand(
		NewServeCommand(),
		NewTapCommand(),
		NewDevicesCommand(),
		NewConfigCommand(),
	)

	return cmd
}

package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/char5742/fbtouch/internal/features"
)

func NewTapCommand() *cobra.Command {
	var (
		hold   time.Duration
		action string
	)

	cmd := &cobra.Command{
		Use:   "tap X Y",
		Short: "Inject a single tap at screen coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "X座標が不正です: %s", args[0])
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "Y座標が不正です: %s", args[1])
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tc := cfg.Touch
			if tc.Device == "" && !tc.Virtual {
				path, err := features.DetectTouchscreen(features.ScanTouchDevices)
				if err != nil {
					return errors.Wrap(err, "--deviceでタッチデバイスを指定してください")
				}
				tc.Device = path
			}

			opts := features.InitOptions{
				DevicePath:      tc.Device,
				Rotate:          tc.Rotate,
				CalibrationFile: tc.CalibrationFile,
				UinputPath:      tc.UinputPath,
				Logger:          logrus.StandardLogger(),
			}
			if tc.Virtual {
				r := tc.VirtualRange
				opts.Virtual = &r
			}
			touch, err := features.InitTouch(opts)
			if err != nil {
				return err
			}
			defer touch.Cleanup()

			// 単発の操作だけを送る
			if action != "" {
				a, err := features.ParseAction(action)
				if err != nil {
					return err
				}
				touch.InjectTouchEvent(a, x, y, nil)
				return nil
			}

			touch.InjectTouchEvent(features.ActionPress, x, y, nil)
			time.Sleep(hold)
			touch.InjectTouchEvent(features.ActionRelease, x, y, nil)
			return nil
		},
	}

	cmd.Flags().DurationVar(&hold, "hold", 50*time.Millisecond, "押してから離すまでの時間")
	cmd.Flags().StringVar(&action, "action", "", "press/drag/release のいずれかだけを送る")

	return cmd
}

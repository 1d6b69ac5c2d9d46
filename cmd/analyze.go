package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boxity-analyzer/internal/container"
	"boxity-analyzer/internal/domain/entity"
)

var (
	analyzeBaseline  string
	analyzeCurrent   string
	analyzeBaseline2 string
	analyzeCurrent2  string
	analyzeView      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare local photos and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dual := analyzeBaseline2 != "" || analyzeCurrent2 != ""
		paths := []string{analyzeBaseline, analyzeCurrent}
		if dual {
			paths = append(paths, analyzeBaseline2, analyzeCurrent2)
		}
		images := make([]entity.Image, len(paths))
		for i, p := range paths {
			if p == "" {
				return eris.New("both baseline and current photos are required for every angle")
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return eris.Wrapf(err, "read %s", p)
			}
			images[i] = entity.NewImage(data, "")
		}

		c, err := container.New(ctx, cfg, zap.L())
		if err != nil {
			return err
		}
		defer c.Close()

		var result any
		if dual {
			result, err = c.Analyzer.AnalyzeMultiAngle(ctx, images[0], images[1], images[2], images[3])
		} else {
			result, err = c.Analyzer.Analyze(ctx, images[0], images[1], analyzeView)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeBaseline, "baseline", "", "baseline photo path")
	f.StringVar(&analyzeCurrent, "current", "", "current photo path")
	f.StringVar(&analyzeBaseline2, "baseline2", "", "baseline photo of the second angle")
	f.StringVar(&analyzeCurrent2, "current2", "", "current photo of the second angle")
	f.StringVar(&analyzeView, "view", entity.ViewSingle, "view label for single-angle mode")
	rootCmd.AddCommand(analyzeCmd)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SlawomirKedra/qr-song-card/layout"
	canvasrenderer "github.com/SlawomirKedra/qr-song-card/renderer/canvas"
	"github.com/SlawomirKedra/qr-song-card/track"
)

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var (
		face  string
		index string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "preview [songs.deck|tracks.json]",
		Short: "把一张卡片渲染为 SVG 预览（没有歌曲时使用示例歌曲）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			s, err := loadSession(cmd, root, input)
			if err != nil {
				return err
			}
			kind, err := layout.ParseFaceKind(face)
			if err != nil {
				return err
			}

			t := track.Sample()
			if len(s.tracks) > 0 {
				i, err := parseIndex(index, len(s.tracks))
				if err != nil {
					return err
				}
				t = s.tracks[i]
			}

			baseDir := ""
			if input != "" {
				baseDir = filepath.Dir(input)
			}
			r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
				BaseDir: baseDir,
				Logger:  log.WithFields(log.Fields{"module": "renderer", "command": "preview"}),
			})
			card, err := layout.RenderFace(t, kind, s.config, layout.BuildOptions{Typesetter: r})
			if err != nil {
				return fmt.Errorf("生成卡片失败: %w", err)
			}
			svg, err := r.RenderFace(card, s.config.Fonts.Map())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			if err := os.WriteFile(out, svg, 0o644); err != nil {
				return fmt.Errorf("写入 SVG 失败: %w", err)
			}
			log.WithFields(log.Fields{"module": "preview", "face": kind, "track": t.Title}).Info("预览已生成")
			return nil
		},
	}
	cmd.Flags().StringVar(&face, "face", "back", "卡片面：front/back")
	cmd.Flags().StringVar(&index, "index", "1", "预览第几首歌（从 1 开始）")
	cmd.Flags().StringVarP(&out, "out", "o", "", "SVG 输出路径，缺省输出到标准输出")
	addLayoutFlags(cmd)
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/qrcode"
	canvasrenderer "github.com/SlawomirKedra/qr-song-card/renderer/canvas"
	"github.com/SlawomirKedra/qr-song-card/track"
)

type exportOptions struct {
	faces    string
	outDir   string
	debugDir string
	unpaired bool
	author   string
	docTitle string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <songs.deck|tracks.json|tracks.yaml>",
		Short: "导出卡片 PDF（正面与背面各一个文件）",
		Example: `  # 导出正反两面，每行 4 张
  songcards export party.deck --columns 4

  # 只导出背面，带裁切线
  songcards export playlist.json --faces back --guides --theme vinyl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd, root, args[0])
			if err != nil {
				return err
			}
			kinds, err := parseFaces(opts.faces)
			if err != nil {
				return err
			}
			written, err := runExport(cmd.Context(), s, kinds, opts, filepath.Dir(args[0]))
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", path)
			}
			return reportError(err, map[string]string{"command": "export", "faces": opts.faces})
		},
	}

	cmd.Flags().StringVar(&opts.faces, "faces", "both", "导出的卡片面：front/back/both")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "PDF 输出目录")
	cmd.Flags().StringVar(&opts.debugDir, "debug", "", "布局调试 JSON 输出目录")
	cmd.Flags().BoolVar(&opts.unpaired, "unpaired", false, "正反面各自保留所有成功的卡片（默认只保留两面都成功的歌曲）")
	cmd.Flags().StringVar(&opts.author, "author", "", "PDF 作者")
	cmd.Flags().StringVar(&opts.docTitle, "title", "", "PDF 标题")
	addLayoutFlags(cmd)
	return cmd
}

// runExport 串联排版、分页与渲染，返回已写出的文件路径。
func runExport(ctx context.Context, s *session, kinds []layout.FaceKind, opts *exportOptions, baseDir string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.WithFields(log.Fields{"module": "export"})
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: baseDir,
		Logger:  log.WithFields(log.Fields{"module": "renderer", "command": "export"}),
	})

	buildOpts := layout.BuildOptions{
		Typesetter: r,
		Encoder:    qrcode.NewEncoder(s.settings.CacheSize),
		Cache:      layout.NewFaceCache(s.settings.CacheSize),
		Workers:    s.settings.Workers,
	}
	list := track.NewList(s.tracks...)
	results, err := layout.ResolveList(ctx, list, kinds, s.config, buildOpts)
	if err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}

	meta := s.meta
	if opts.author != "" {
		meta.Author = opts.author
	}
	if opts.docTitle != "" {
		meta.Title = opts.docTitle
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	paired := len(kinds) > 1 && !opts.unpaired
	var written []string
	for _, kind := range kinds {
		faces := layout.Faces(results, kind, paired)
		if skipped := len(results) - len(faces); skipped > 0 {
			logger.WithFields(log.Fields{"face": kind, "skipped": skipped}).Warn("部分卡片未能生成，已跳过")
		}
		doc, err := layout.BuildDocument(faces, kind, s.config, meta)
		if err != nil {
			return written, fmt.Errorf("%s 面分页失败: %w", kind, err)
		}
		if opts.debugDir != "" {
			if err := writeDebug(doc, opts.debugDir); err != nil {
				return written, err
			}
		}
		pdfBytes, err := r.Render(doc)
		if err != nil {
			return written, fmt.Errorf("渲染 %s 面 PDF 失败: %w", kind, err)
		}
		path := filepath.Join(opts.outDir, doc.Filename)
		if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
			return written, fmt.Errorf("写入 PDF 文件失败: %w", err)
		}
		logger.WithFields(log.Fields{"face": kind, "pages": len(doc.Pages), "cards": len(faces)}).Info("导出完成")
		written = append(written, path)
	}
	return written, nil
}

func writeDebug(doc *layout.Document, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	name := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename)) + ".json"
	if err := layout.WriteDebugJSON(doc, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

// parseIndex 接受 1 起始的序号。
func parseIndex(v string, n int) (int, error) {
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("序号 %q 超出范围 1..%d", v, n)
	}
	return i - 1, nil
}

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SlawomirKedra/qr-song-card/config"
	"github.com/SlawomirKedra/qr-song-card/deck"
	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/track"
)

// layoutFlags 是可以在命令行覆盖的配置项，名称与 config.Settings.Set 的键一致。
var layoutFlags = []string{
	"page", "orientation", "margin", "columns", "aspect", "theme", "intensity",
	"guides", "mirror-backs", "ecc", "quiet-zone", "ink", "workers",
}

func addLayoutFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("page", "", "纸张：a3/a4/a5/letter/legal")
	f.String("orientation", "", "方向：portrait/landscape")
	f.String("margin", "", "边距与卡片间距，例如 4mm")
	f.Int("columns", 0, "每行卡片数（常用 4 或 5）")
	f.String("aspect", "", "卡片高宽比，例如 1、52/37 或 37x52")
	f.String("theme", "", "背面风格，见 songcards themes")
	f.Float64("intensity", 0, "装饰强度 0-100")
	f.Bool("guides", false, "绘制裁切线")
	f.Bool("mirror-backs", false, "背面页左右镜像，便于双面打印对齐")
	f.String("ecc", "", "二维码纠错级别 L/M/Q/H")
	f.Int("quiet-zone", 0, "二维码静区模块数（2 或 3）")
	f.String("ink", "", "墨色，例如 #000")
	f.Int("workers", 0, "并行排版的协程数")
}

// session 是一次命令执行所需的全部输入。
type session struct {
	settings config.Settings
	config   layout.Config
	tracks   []track.Track
	meta     layout.DocumentMeta
	name     string
}

// loadSession 按 YAML/环境变量 → deck → 命令行 的优先级合并配置，并读取歌曲。
func loadSession(cmd *cobra.Command, opts *rootOptions, input string) (*session, error) {
	s := &session{settings: opts.settings}

	if input != "" {
		switch strings.ToLower(filepath.Ext(input)) {
		case ".deck", ".songs":
			d, err := deck.LoadFile(input)
			if err != nil {
				return nil, err
			}
			if err := s.settings.ApplyOverrides(d.Settings); err != nil {
				return nil, fmt.Errorf("deck 配置无效: %w", err)
			}
			s.tracks = d.Tracks
			s.meta = d.Meta
			s.name = d.Name
		default:
			tracks, err := track.LoadFile(input)
			if err != nil {
				return nil, err
			}
			s.tracks = tracks
		}
		if s.name == "" {
			s.name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
	}

	for _, name := range layoutFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := s.settings.Set(name, flag.Value.String()); err != nil {
			return nil, err
		}
	}

	cfg, err := s.settings.ToLayoutConfig()
	if err != nil {
		return nil, err
	}
	s.config = cfg

	log.WithFields(log.Fields{
		"module":  "cmd",
		"tracks":  len(s.tracks),
		"columns": cfg.Columns,
		"theme":   cfg.Theme,
	}).Debug("配置已加载")
	return s, nil
}

func parseFaces(v string) ([]layout.FaceKind, error) {
	if strings.EqualFold(strings.TrimSpace(v), "both") || v == "" {
		return []layout.FaceKind{layout.FaceFront, layout.FaceBack}, nil
	}
	kind, err := layout.ParseFaceKind(v)
	if err != nil {
		return nil, err
	}
	return []layout.FaceKind{kind}, nil
}

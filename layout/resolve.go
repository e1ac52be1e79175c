package layout

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/SlawomirKedra/qr-song-card/binding"
	"github.com/SlawomirKedra/qr-song-card/track"
)

var (
	// ErrNoFaces 表示过滤后没有任何可以导出的卡片面。
	ErrNoFaces = errors.New("layout: 没有可用的卡片")
	// ErrStale 表示解析期间歌曲列表发生了变化，结果已作废。
	ErrStale = errors.New("layout: 歌曲列表已变更，结果已过期")
)

// FilenameTemplate 是导出文件名模板，编码卡片面与列数。
const FilenameTemplate = "qr-song-cards-${face}-${columns}col.pdf"

type faceKey struct {
	content     string
	kind        FaceKind
	fingerprint string
}

// FaceCache 按 (歌曲内容, 面, 配置指纹) 缓存卡片几何。配置变化会改变指纹，旧条目自然失效。
type FaceCache struct {
	cache *lru.Cache[faceKey, *CardFace]
}

// NewFaceCache 创建缓存；size<=0 时使用默认 512。
func NewFaceCache(size int) *FaceCache {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[faceKey, *CardFace](size)
	if err != nil {
		panic(err)
	}
	return &FaceCache{cache: cache}
}

// Len returns the number of cached faces.
func (c *FaceCache) Len() int { return c.cache.Len() }

func (c *FaceCache) get(key faceKey) (*CardFace, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *FaceCache) add(key faceKey, f *CardFace) {
	if c == nil {
		return
	}
	c.cache.Add(key, f)
}

// CardResult 是一首歌的解析结果。未请求的面为 nil 且错误为 nil。
type CardResult struct {
	Track    track.Track
	Front    *CardFace
	Back     *CardFace
	FrontErr error
	BackErr  error
}

// Face 返回指定面的结果。
func (r CardResult) Face(kind FaceKind) (*CardFace, error) {
	if kind == FaceFront {
		return r.Front, r.FrontErr
	}
	return r.Back, r.BackErr
}

// Resolve 并发解析所有歌曲的指定面，每个结果写入按源顺序预分配的槽位，
// 全部完成后按源顺序返回。单张卡片失败只记录在结果中，不中断其余卡片。
func Resolve(ctx context.Context, tracks []track.Track, kinds []FaceKind, cfg Config, opts BuildOptions) ([]CardResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.logger()
	fingerprint := cfg.Fingerprint()
	if opts.Encoder == nil {
		opts.Encoder = opts.encoder()
	}

	results := make([]CardResult, len(tracks))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, t := range tracks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := CardResult{Track: t}
			for _, kind := range kinds {
				face, err := resolveFace(t, i, kind, cfg, fingerprint, opts)
				if err != nil {
					logger.WithFields(log.Fields{"track": t.ID, "index": i, "face": kind}).WithError(err).Warn("卡片解析失败，已跳过")
				}
				if kind == FaceFront {
					res.Front, res.FrontErr = face, err
				} else {
					res.Back, res.BackErr = face, err
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func resolveFace(t track.Track, index int, kind FaceKind, cfg Config, fingerprint string, opts BuildOptions) (*CardFace, error) {
	key := faceKey{content: t.ContentKey(), kind: kind, fingerprint: fingerprint}
	cached, ok := opts.Cache.get(key)
	if !ok {
		face, err := RenderFace(t, kind, cfg, opts)
		if err != nil {
			return nil, err
		}
		opts.Cache.add(key, face)
		cached = face
	}
	// 缓存的几何被多首内容相同的歌共享，只复制头部字段
	f := *cached
	f.TrackID = t.ID
	f.Index = index
	return &f, nil
}

// ResolveList 对列表快照调用 Resolve；若期间列表被修改，则丢弃结果并返回 ErrStale。
func ResolveList(ctx context.Context, list *track.List, kinds []FaceKind, cfg Config, opts BuildOptions) ([]CardResult, error) {
	tracks, version := list.Snapshot()
	results, err := Resolve(ctx, tracks, kinds, cfg, opts)
	if err != nil {
		return nil, err
	}
	if list.Version() != version {
		return nil, ErrStale
	}
	return results, nil
}

// Faces 按源顺序取出指定面。paired 为真时，另一面解析失败的歌曲也会被跳过，
// 保证正反两份文档中的卡片一一对应。
func Faces(results []CardResult, kind FaceKind, paired bool) []*CardFace {
	other := FaceBack
	if kind == FaceBack {
		other = FaceFront
	}
	var out []*CardFace
	for _, r := range results {
		face, err := r.Face(kind)
		if err != nil || face == nil {
			continue
		}
		if _, otherErr := r.Face(other); paired && otherErr != nil {
			continue
		}
		out = append(out, face)
	}
	return out
}

// BuildDocument 将同一种面的卡片排版为完整文档。
func BuildDocument(faces []*CardFace, kind FaceKind, cfg Config, meta DocumentMeta) (*Document, error) {
	var selected []*CardFace
	for _, f := range faces {
		if f != nil && f.Kind == kind {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoFaces
	}
	vars := map[string]any{"face": string(kind), "columns": cfg.Columns}
	if meta.Title == "" {
		meta.Title = "QR Song Cards"
	}
	if meta.Creator == "" {
		meta.Creator = "qr-song-card"
	}
	if meta.Subject == "" {
		meta.Subject = fmt.Sprintf("%s faces, %d columns", kind, cfg.Columns)
	}
	meta.Keywords = append(append([]string(nil), meta.Keywords...), string(kind), fmt.Sprintf("columns=%d", cfg.Columns), "theme="+string(cfg.Theme))
	return &Document{
		Kind:     kind,
		Columns:  cfg.Columns,
		Pages:    Tile(selected, cfg),
		Fonts:    cfg.Fonts.Map(),
		Meta:     meta,
		Filename: binding.Interpolate(FilenameTemplate, vars),
	}, nil
}

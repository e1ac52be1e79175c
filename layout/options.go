package layout

import (
	log "github.com/sirupsen/logrus"

	"github.com/SlawomirKedra/qr-song-card/qrcode"
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端与缓存。
type BuildOptions struct {
	Typesetter Typesetter
	Encoder    *qrcode.Encoder
	Cache      *FaceCache
	// Workers 限制并发解析卡片的数量，<=0 时不限制
	Workers int
	Logger  *log.Entry
}

// Typesetter 负责测量文本宽度。fontSize 与返回值均以毫米为单位。
type Typesetter interface {
	MeasureText(content string, font FontResource, fontSize float64) (float64, error)
}

func (o BuildOptions) encoder() *qrcode.Encoder {
	if o.Encoder == nil {
		return qrcode.NewEncoder(0)
	}
	return o.Encoder
}

func (o BuildOptions) logger() *log.Entry {
	if o.Logger == nil {
		return log.WithFields(log.Fields{"module": "layout"})
	}
	return o.Logger
}

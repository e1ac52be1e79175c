package renderer

import "github.com/SlawomirKedra/qr-song-card/layout"

// Renderer 将排版好的文档输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(doc *layout.Document) ([]byte, error)
}

// Previewer 把单张卡片面输出为可在屏幕上预览的矢量图（例如 SVG）。
// 预览与导出使用同一份几何数据。
type Previewer interface {
	RenderFace(face *layout.CardFace, fonts map[string]layout.FontResource) ([]byte, error)
}

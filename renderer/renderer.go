package renderer

import (
	"sync"

	"github.com/sat8bit/roundtable/bus"
)

// Renderer は、討論のレンダリングを行うコンポーネントが満たすべきインターフェースです。
type Renderer interface {
	// Render は、バスを購読してレンダリング処理を開始します。
	Render(b bus.Bus, wg *sync.WaitGroup) error
}

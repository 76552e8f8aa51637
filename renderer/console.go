package renderer

import (
	"fmt"
	"sync"

	"github.com/gookit/color"

	"github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/message"
)

func NewConsoleRenderer() *ConsoleRenderer {
	return &ConsoleRenderer{}
}

// ConsoleRenderer は、バスのイベントを標準出力に描画します。
type ConsoleRenderer struct{}

func (c *ConsoleRenderer) Render(b bus.Bus, wg *sync.WaitGroup) error {
	ch := b.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range ch {
			switch e.Kind {
			case bus.EventTypingStart:
				color.Cyan.Printf("... %s 입력 중\n", e.Speaker)
			case bus.EventTypingStop:
				// タイピング表示は次のメッセージで上書きされるため何もしない
			case bus.EventInterventionRequested:
				color.Magenta.Println("✋ 사용자 개입 대기 중")
			case bus.EventLog:
				color.Yellow.Printf("[log] %s\n", e.Meta["msg"])
			case bus.EventMessage:
				c.renderMessage(e.Message)
			}
		}
	}()

	return nil
}

func (c *ConsoleRenderer) renderMessage(m *message.Message) {
	if m == nil {
		return
	}
	switch m.Kind {
	case message.KindSystem:
		color.Yellow.Printf("[System] %s\n", m.Content)
	case message.KindConclusion:
		color.Green.Printf("%s: %s\n", m.Sender, m.Content)
	case message.KindQuestion:
		color.Cyan.Printf("%s: %s\n", m.Sender, m.Content)
	default:
		fmt.Printf("%s: %s\n", m.Sender, m.Content)
	}
}

var _ Renderer = (*ConsoleRenderer)(nil)

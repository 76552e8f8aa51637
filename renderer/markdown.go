package renderer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/message"
)

func NewMarkdownRenderer(outputDir string) *MarkdownRenderer {
	return &MarkdownRenderer{
		outputDir: outputDir,
		messages:  make([]*message.Message, 0, 100),
	}
}

// MarkdownRenderer は、討論のログをMarkdownファイルとして書き出すレンダラーです。
// バスが閉じられた時点で、収集したログをファイルに書き出します。
type MarkdownRenderer struct {
	outputDir string
	topic     string
	mu        sync.Mutex
	messages  []*message.Message
}

func (m *MarkdownRenderer) Render(b bus.Bus, wg *sync.WaitGroup) error {
	ch := b.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range ch {
			switch e.Kind {
			case bus.EventSessionStarted:
				m.mu.Lock()
				if topic, ok := e.Meta["topic"]; ok {
					m.topic = topic
				}
				m.mu.Unlock()
			case bus.EventMessage:
				if e.Message != nil {
					m.addMessage(e.Message)
				}
			}
		}

		if err := m.writeToFile(); err != nil {
			slog.Error("failed to write markdown log", "error", err)
		}
	}()

	return nil
}

func (m *MarkdownRenderer) addMessage(msg *message.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *MarkdownRenderer) writeToFile() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		return nil
	}

	now := time.Now()
	var sb strings.Builder

	sb.WriteString("# 🏢 채팅형 원탁토론 결과\n\n")
	sb.WriteString("## 📋 토론 정보\n")
	sb.WriteString(fmt.Sprintf("- **주제**: %s\n", m.topic))
	sb.WriteString(fmt.Sprintf("- **일시**: %s\n", now.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("- **총 메시지**: %d개\n\n", len(m.messages)))
	sb.WriteString("---\n\n## 💬 채팅 로그\n\n")

	for _, msg := range m.messages {
		timeStr := msg.At.Format("15:04:05")
		switch msg.Kind {
		case message.KindSystem:
			sb.WriteString(fmt.Sprintf("**[%s] 📢 %s**: %s\n\n", timeStr, msg.Sender, msg.Content))
		case message.KindConclusion:
			sb.WriteString(fmt.Sprintf("**[%s] 🎯 %s**: %s\n\n", timeStr, msg.Sender, msg.Content))
		default:
			sb.WriteString(fmt.Sprintf("**[%s] %s**: %s\n\n", timeStr, msg.Sender, msg.Content))
		}
	}

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fileName := fmt.Sprintf("토론결과_%s.md", now.Format("20060102-150405"))
	filePath := filepath.Join(m.outputDir, fileName)

	return os.WriteFile(filePath, []byte(sb.String()), 0644)
}

var _ Renderer = (*MarkdownRenderer)(nil)

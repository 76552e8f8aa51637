package renderer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	buspkg "github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/message"
)

func TestMarkdownRenderer_Writes_Transcript_On_Bus_Close(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	b := buspkg.NewMemoryBus()

	var wg sync.WaitGroup
	r := NewMarkdownRenderer(dir)
	req.NoError(r.Render(b, &wg))

	// Given a short discussion on the bus
	req.NoError(b.Publish(&buspkg.Event{
		Kind: buspkg.EventSessionStarted,
		Meta: map[string]string{"topic": "신제품 출시 전략"},
	}))
	req.NoError(b.Publish(&buspkg.Event{
		Kind:    buspkg.EventMessage,
		Message: message.New("시스템", "🚀 토론이 시작되었습니다!", message.KindSystem),
	}))
	req.NoError(b.Publish(&buspkg.Event{
		Kind:    buspkg.EventMessage,
		Message: message.New("디자인팀 팀장 김창의", "브랜드 경험이 먼저입니다.", message.KindMessage),
	}))
	req.NoError(b.Publish(&buspkg.Event{
		Kind:    buspkg.EventMessage,
		Message: message.New("토론 진행자", "오늘의 결론입니다.", message.KindConclusion),
	}))

	// When the bus closes, the renderer flushes to disk
	b.Close()
	wg.Wait()

	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Len(entries, 1)

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	req.NoError(err)
	text := string(content)
	req.Contains(text, "# 🏢 채팅형 원탁토론 결과")
	req.Contains(text, "**주제**: 신제품 출시 전략")
	req.Contains(text, "브랜드 경험이 먼저입니다.")
	req.Contains(text, "🎯 토론 진행자")
	req.Contains(text, "📢 시스템")
}

func TestMarkdownRenderer_Writes_Nothing_For_An_Empty_Discussion(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	b := buspkg.NewMemoryBus()

	var wg sync.WaitGroup
	r := NewMarkdownRenderer(dir)
	req.NoError(r.Render(b, &wg))

	b.Close()
	wg.Wait()

	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}

// Package memory は、発言の長期アーカイブと検索の能力を提供します。
// セッションは発言を追加するたびにここへ機会的に記録しますが、
// 記録の成否には依存しません。
package memory

import (
	"context"
	"time"
)

// Utterance は、アーカイブされる1件の発言です。
type Utterance struct {
	SessionID string
	Sender    string
	Content   string
	At        time.Time
}

// Result は、検索結果の1件です。
type Result struct {
	Sender  string
	Content string
	Score   float64
}

// Recorder は、発言の記録と検索の責務を持ちます。
type Recorder interface {
	Record(ctx context.Context, u Utterance) error
	Search(ctx context.Context, sessionID, query string, topK int) ([]Result, error)
	Close() error
}

// Noop は、何も記録しない Recorder です。アーカイブが不要な構成で使います。
type Noop struct{}

func (Noop) Record(ctx context.Context, u Utterance) error { return nil }

func (Noop) Search(ctx context.Context, sessionID, query string, topK int) ([]Result, error) {
	return nil, nil
}

func (Noop) Close() error { return nil }

var _ Recorder = Noop{}

package message

import (
	"time"

	"github.com/google/uuid"
)

// Message は、討論中の1回の発言を表す不変のレコードです。
// 生成後に変更されることはなく、セッションのトランスクリプトに
// 追記されるのみです。
type Message struct {
	ID      string
	Sender  string
	Content string
	At      time.Time
	Kind    Kind
}

// New は、発言時刻を現在時刻として新しい Message を生成します。
func New(sender, content string, kind Kind) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Sender:  sender,
		Content: content,
		At:      time.Now(),
		Kind:    kind,
	}
}

// IsSystem は、このメッセージがシステム通知かどうかを返します。
func (m *Message) IsSystem() bool {
	return m.Kind == KindSystem
}

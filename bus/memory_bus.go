package bus

import (
	"fmt"
	"sync"
	"time"
)

// MemoryBus は bus.Bus インターフェースのインメモリ実装です。
// 内部で購読者のチャネルリストを保持し、発行されたイベントを
// すべての購読者に配送します。
type MemoryBus struct {
	// 購読しているすべてのチャネルのスライス
	subscribers []chan *Event

	// subscribers スライスを保護するための読み書きミューテックス
	mu sync.RWMutex

	// バスが閉じられているかどうかを示すフラグ
	isClosed bool
}

// NewMemoryBus は新しい MemoryBus を生成します。
func NewMemoryBus() Bus {
	return &MemoryBus{
		subscribers: make([]chan *Event, 0),
	}
}

// Publish はイベントをすべての購読者に配送します。
// この操作はノンブロッキングです。もし購読者のチャネルバッファが一杯の場合、
// その購読者へのイベントはドロップされます。
func (b *MemoryBus) Publish(e *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isClosed {
		return fmt.Errorf("bus is closed")
	}

	if e.At.IsZero() {
		e.At = time.Now()
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
			// イベントを正常に送信
		default:
			// 購読者の受信が追いついていない場合はドロップする
		}
	}

	return nil
}

// Subscribe は新しい購読者を追加し、イベントを受信するためのチャネルを返します。
func (b *MemoryBus) Subscribe() <-chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	newSubscriberCh := make(chan *Event, 16)

	if b.isClosed {
		// バスが既に閉じられている場合は、閉じたチャネルを返す
		close(newSubscriberCh)
		return newSubscriberCh
	}

	b.subscribers = append(b.subscribers, newSubscriberCh)

	return newSubscriberCh
}

// HasListeners は、1つ以上の購読者が接続されているかを返します。
// 自動討論ドライバーが「誰も聞いていない」状態を検出するために使用します。
func (b *MemoryBus) HasListeners() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.isClosed && len(b.subscribers) > 0
}

// Close はバスを閉じ、すべての購読者チャネルをクローズします。
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isClosed {
		b.isClosed = true
		for _, ch := range b.subscribers {
			close(ch)
		}
		// メモリリークを防ぐためにスライスをクリア
		b.subscribers = nil
	}
}

// コンパイル時に Bus インターフェースを実装していることを保証します。
var _ Bus = (*MemoryBus)(nil)

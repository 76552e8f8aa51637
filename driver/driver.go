// Package driver は、自動討論のターンループをキャンセル可能な
// バックグラウンドタスクとして実行します。
package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/session"
)

const (
	defaultTurnInterval = 3 * time.Second
	defaultPollSlice    = 500 * time.Millisecond
	defaultGenTimeout   = 30 * time.Second
)

// Driver は、セッションに次のターンを繰り返し生成させ、
// typing/message イベントをバスへ流すループです。
// 停止要求はポーリングのスライス単位（既定0.5秒）で反映されます。
type Driver struct {
	session *session.Session
	bus     bus.Bus
	log     *slog.Logger

	turnInterval time.Duration
	pollSlice    time.Duration
	genTimeout   time.Duration
	maxRounds    int
	liveness     func() bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option は、Driver の生成時オプションです。
type Option func(*Driver)

// WithTurnInterval は、ターン間の待機時間を設定します。
func WithTurnInterval(d time.Duration) Option {
	return func(dr *Driver) { dr.turnInterval = d }
}

// WithPollSlice は、停止要求を確認するポーリング間隔を設定します。
func WithPollSlice(d time.Duration) Option {
	return func(dr *Driver) { dr.pollSlice = d }
}

// WithGenerationTimeout は、1ターンの生成に許す上限時間を設定します。
func WithGenerationTimeout(d time.Duration) Option {
	return func(dr *Driver) { dr.genTimeout = d }
}

// WithMaxRounds は、自動討論を停止するラウンド数の上限を設定します。
// 0 以下は無制限です。
func WithMaxRounds(n int) Option {
	return func(dr *Driver) { dr.maxRounds = n }
}

// WithLiveness は、「誰かが聞いているか」の判定を差し替えます。
// 既定はバスの購読者の有無です。
func WithLiveness(fn func() bool) Option {
	return func(dr *Driver) { dr.liveness = fn }
}

// WithLogger は、ロガーを差し替えます。
func WithLogger(l *slog.Logger) Option {
	return func(dr *Driver) { dr.log = l }
}

// New は、新しい Driver を生成します。
func New(s *session.Session, b bus.Bus, opts ...Option) *Driver {
	d := &Driver{
		session:      s,
		bus:          b,
		log:          slog.Default(),
		turnInterval: defaultTurnInterval,
		pollSlice:    defaultPollSlice,
		genTimeout:   defaultGenTimeout,
		liveness:     b.HasListeners,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start は、ループを開始します。既に動いているループがあれば
// 先にキャンセルして終了を待ちます。同じセッションを2つのループが
// 同時に進めることはありません。
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		prev := d.done
		d.mu.Unlock()
		<-prev
		d.mu.Lock()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	go d.loop(loopCtx, done)
}

// Stop は、ループをキャンセルして終了を待ちます。
func (d *Driver) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait は、ループの終了を待ちます。動いていなければ即座に戻ります。
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (d *Driver) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for d.session.AutoEnabled() {
		// ターン間の待機。スライスごとに停止要求を確認するため、
		// 無効化はループ先頭でなく1スライス以内に反映される。
		if stopped := d.wait(ctx); stopped {
			return
		}
		if !d.session.AutoEnabled() {
			return
		}

		// 誰も聞いていなければ回し続けない
		if !d.liveness() {
			d.log.Info("no listeners attached, disabling auto discussion")
			d.session.DisableAuto()
			return
		}

		if d.maxRounds > 0 && d.session.Rounds() >= d.maxRounds {
			d.log.Info("max rounds reached, disabling auto discussion", "rounds", d.session.Rounds())
			d.session.DisableAuto()
			return
		}

		speaker, ok := d.session.NextSpeaker()
		if !ok {
			// キューも参加者も空。クラッシュせずこのターンを中断する。
			d.log.Warn("speaker queue exhausted, skipping turn")
			continue
		}

		speakerName := d.session.Registry().DisplayName(speaker)
		d.publish(&bus.Event{Kind: bus.EventTypingStart, Speaker: speakerName})

		genCtx, cancelGen := context.WithTimeout(ctx, d.genTimeout)
		msg, err := d.session.GenerateTurn(genCtx, speaker)
		cancelGen()

		if err != nil {
			d.publish(&bus.Event{Kind: bus.EventTypingStop, Speaker: speakerName})
			if ctx.Err() != nil {
				// 外部からのキャンセル。メッセージは追記されていない。
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				d.log.Warn("turn generation timed out", "speaker", speaker)
			} else {
				d.log.Error("turn generation failed", "speaker", speaker, "error", err)
			}
			// 一時的な失敗として次のターンへ
			continue
		}

		// タイピング表示はメッセージより先に消える
		d.publish(&bus.Event{Kind: bus.EventTypingStop, Speaker: speakerName})
		d.publish(&bus.Event{Kind: bus.EventMessage, Speaker: speakerName, Message: msg})

		if d.session.InterventionPending() {
			d.publish(&bus.Event{Kind: bus.EventInterventionRequested})
			return
		}
	}
}

// wait は、ターン間の待機をスライスに分割して行います。
// キャンセルまたは自動討論の無効化を検出すると true を返します。
func (d *Driver) wait(ctx context.Context) bool {
	slices := int(d.turnInterval / d.pollSlice)
	if slices < 1 {
		slices = 1
	}
	for i := 0; i < slices; i++ {
		select {
		case <-ctx.Done():
			return true
		case <-time.After(d.pollSlice):
		}
		if !d.session.AutoEnabled() {
			return true
		}
	}
	return false
}

func (d *Driver) publish(e *bus.Event) {
	if err := d.bus.Publish(e); err != nil {
		d.log.Warn("failed to publish event", "kind", e.Kind, "error", err)
	}
}

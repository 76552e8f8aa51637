package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	buspkg "github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/llm"
	"github.com/sat8bit/roundtable/persona"
	"github.com/sat8bit/roundtable/session"
)

// fakeLLM は、テスト用の LLM 実装です。fn が nil なら即座に固定文を返します。
type fakeLLM struct {
	fn func(ctx context.Context, in llm.GenerateInput) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, in llm.GenerateInput) (string, error) {
	if f.fn != nil {
		return f.fn(ctx, in)
	}
	return "자동 발언입니다.", nil
}

func newAutoSession(t *testing.T, f *fakeLLM, b buspkg.Bus) *session.Session {
	t.Helper()
	registry, err := persona.NewRegistry()
	require.NoError(t, err)
	s := session.New(registry, f, b)
	s.Start("신제품 출시 전략", nil, nil)
	s.StartAuto()
	return s
}

// fastOptions は、テストを高速に回すための短い間隔設定です。
func fastOptions(extra ...Option) []Option {
	opts := []Option{
		WithTurnInterval(10 * time.Millisecond),
		WithPollSlice(2 * time.Millisecond),
		WithGenerationTimeout(time.Second),
	}
	return append(opts, extra...)
}

func TestDriver_Emits_Typing_Then_Message_In_Order(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	s := newAutoSession(t, &fakeLLM{}, b)
	ch := b.Subscribe()

	d := New(s, b, fastOptions(WithMaxRounds(1))...)
	d.Start(context.Background())
	d.Wait()

	var kinds []buspkg.EventKind
	for {
		select {
		case e := <-ch:
			kinds = append(kinds, e.Kind)
			continue
		default:
		}
		break
	}

	req.Equal([]buspkg.EventKind{
		buspkg.EventTypingStart,
		buspkg.EventTypingStop,
		buspkg.EventMessage,
	}, kinds)
	req.Equal(1, s.Rounds())
	req.False(s.AutoEnabled(), "max rounds disables auto discussion")
}

func TestDriver_Disables_Auto_When_Nobody_Listens(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	s := newAutoSession(t, &fakeLLM{}, b)

	// Given no subscriber is attached to the bus
	req.False(b.HasListeners())

	d := New(s, b, fastOptions()...)
	d.Start(context.Background())
	d.Wait()

	// Then the loop shuts itself down without generating anything
	req.False(s.AutoEnabled())
	req.Equal(session.StatePaused, s.State())
	req.Zero(s.Rounds())
}

func TestDriver_Timeout_Skips_The_Turn_And_Continues(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	blocking := &fakeLLM{fn: func(ctx context.Context, in llm.GenerateInput) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s := newAutoSession(t, blocking, b)
	ch := b.Subscribe()

	d := New(s, b, fastOptions(WithGenerationTimeout(5*time.Millisecond))...)
	d.Start(context.Background())

	// Wait until two speakers have been attempted, proving the loop advanced
	starts := 0
	deadline := time.After(2 * time.Second)
	for starts < 2 {
		select {
		case e := <-ch:
			req.NotEqual(buspkg.EventMessage, e.Kind, "timed-out turns must not produce messages")
			if e.Kind == buspkg.EventTypingStart {
				starts++
			}
		case <-deadline:
			t.Fatal("driver did not advance past the timed-out turn")
		}
	}
	d.Stop()

	req.Zero(s.Rounds())
}

func TestDriver_Cancellation_Appends_No_Partial_Message(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	blocking := &fakeLLM{fn: func(ctx context.Context, in llm.GenerateInput) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s := newAutoSession(t, blocking, b)
	b.Subscribe()
	before := len(s.Transcript())

	ctx, cancel := context.WithCancel(context.Background())
	d := New(s, b, fastOptions()...)
	d.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()
	d.Wait()

	req.Len(s.Transcript(), before)
	req.Zero(s.Rounds())
}

func TestDriver_Exits_When_Intervention_Is_Requested(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	var s *session.Session
	interrupting := &fakeLLM{fn: func(ctx context.Context, in llm.GenerateInput) (string, error) {
		s.RequestIntervention()
		return "마지막 자동 발언입니다.", nil
	}}
	s = newAutoSession(t, interrupting, b)
	ch := b.Subscribe()

	d := New(s, b, fastOptions()...)
	d.Start(context.Background())
	d.Wait()

	// The finished turn is still delivered before the loop exits
	var kinds []buspkg.EventKind
	for {
		select {
		case e := <-ch:
			kinds = append(kinds, e.Kind)
			continue
		default:
		}
		break
	}
	req.Contains(kinds, buspkg.EventMessage)
	req.Equal(buspkg.EventInterventionRequested, kinds[len(kinds)-1])
	req.True(s.InterventionPending())
	req.Equal(1, s.Rounds())
}

func TestDriver_Pause_Stops_The_Loop_Within_One_Slice(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	s := newAutoSession(t, &fakeLLM{}, b)
	b.Subscribe()

	d := New(s, b,
		WithTurnInterval(time.Hour), // ターン間で待機させたまま止める
		WithPollSlice(2*time.Millisecond),
	)
	d.Start(context.Background())

	time.Sleep(10 * time.Millisecond)
	s.PauseAuto()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not observe the pause within the poll slice")
	}
	req.False(s.AutoEnabled())
}

func TestDriver_Restart_Replaces_The_Previous_Loop(t *testing.T) {
	req := require.New(t)
	b := buspkg.NewMemoryBus()
	s := newAutoSession(t, &fakeLLM{}, b)
	b.Subscribe()

	d := New(s, b, fastOptions(WithMaxRounds(2))...)
	d.Start(context.Background())
	d.Start(context.Background())
	d.Wait()
	d.Stop()

	// 2つのループが同時に回らないため、上限を超えて生成されることはない
	req.LessOrEqual(s.Rounds(), 2)
	req.False(s.AutoEnabled())
}

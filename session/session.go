// Package session は、原卓討論の中核となる状態機械を実装します。
// Session は1つの討論のトランスクリプト・参加者・進行状態を所有し、
// すべての制御操作を公開します。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/llm"
	"github.com/sat8bit/roundtable/memory"
	"github.com/sat8bit/roundtable/message"
	"github.com/sat8bit/roundtable/persona"
	"github.com/sat8bit/roundtable/turn"
)

// State は、討論セッションの進行状態を表します。
type State string

const (
	StateReady            State = "ready"
	StateDiscussing       State = "discussing"
	StateAutoDiscussing   State = "auto_discussing"
	StatePaused           State = "paused"
	StateUserIntervention State = "user_intervention"
)

const (
	senderSystem = "시스템"
	senderUser   = "사용자"
)

// Session は、1つの討論のアグリゲートルートです。
// 状態の変更はすべてミューテックスで直列化されます。LLM呼び出し自体は
// ロックの外で行われるため、生成中でも pause などの操作は即座に通ります。
type Session struct {
	registry *persona.Registry
	llm      llm.LLM
	bus      bus.Bus
	recorder memory.Recorder
	log      *slog.Logger

	mu                  sync.Mutex
	rng                 *rand.Rand
	quickReplyProb      float64
	id                  string
	topic               string
	context             map[string]string
	transcript          []*message.Message
	active              []persona.Identity
	state               State
	queue               *turn.Queue
	autoEnabled         bool
	interventionPending bool
	rounds              int
	used                map[persona.Identity]map[string]struct{}
}

// Option は、Session の生成時オプションです。
type Option func(*Session)

// WithRecorder は、発言アーカイブの実装を差し替えます。既定は no-op です。
func WithRecorder(r memory.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger は、ロガーを差し替えます。
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithQuickReplyProb は、自動ターンで定型応答を使う確率を設定します。
// 既定は 0（常にLLMを呼ぶ）です。
func WithQuickReplyProb(p float64) Option {
	return func(s *Session) { s.quickReplyProb = p }
}

// New は、新しい Session を Ready 状態で生成します。
func New(registry *persona.Registry, llmClient llm.LLM, eventBus bus.Bus, opts ...Option) *Session {
	s := &Session{
		registry: registry,
		llm:      llmClient,
		bus:      eventBus,
		recorder: memory.Noop{},
		log:      slog.Default(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		id:       uuid.NewString(),
		context:  make(map[string]string),
		state:    StateReady,
		queue:    turn.NewQueue(),
		used:     make(map[persona.Identity]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- 状態機械の操作 ---

// Start は、新しい討論を開始します。トランスクリプト・使用済み応答・
// ラウンド数をリセットし、参加者名を Identity に解決します。
// 解決結果が空になる場合は既定のフル参加者セットに戻します
// （参加者ゼロで討論を進行させない）。
func (s *Session) Start(topic string, ctxInfo map[string]string, participants []string) *message.Message {
	s.mu.Lock()

	s.id = uuid.NewString()
	s.topic = topic
	if ctxInfo == nil {
		ctxInfo = make(map[string]string)
	}
	s.context = ctxInfo
	s.transcript = nil
	s.used = make(map[persona.Identity]map[string]struct{})
	s.rounds = 0
	s.autoEnabled = false
	s.interventionPending = false
	s.state = StateDiscussing

	resolved := s.registry.ResolveAll(participants)
	if len(resolved) == 0 {
		resolved = persona.Experts()
	}
	s.active = resolved
	s.queue = turn.NewQueue()

	count := len(s.active)
	s.mu.Unlock()

	msg := message.New(
		senderSystem,
		fmt.Sprintf("🚀 토론이 시작되었습니다!\n주제: %s\n참석자: %d명", topic, count),
		message.KindSystem,
	)
	s.append(msg, true)
	s.publish(&bus.Event{Kind: bus.EventSessionStarted, Meta: map[string]string{"topic": topic}})
	return msg
}

// StartAuto は、自動討論モードに移行します。
// スピーカーキューを現在のアクティブ参加者から再初期化（シャッフル）します。
func (s *Session) StartAuto() *message.Message {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		msg := message.New(senderSystem, "⚠️ 토론이 시작되지 않았습니다. 먼저 토론을 시작해주세요.", message.KindSystem)
		s.append(msg, true)
		return msg
	}
	s.autoEnabled = true
	s.state = StateAutoDiscussing
	s.queue.Init(s.active)
	s.mu.Unlock()

	msg := message.New(senderSystem, "🚀 자동 토론이 시작되었습니다! 전문가들이 자유롭게 토론을 진행합니다.", message.KindSystem)
	s.append(msg, true)
	return msg
}

// PauseAuto は、自動討論を一時停止します。キューはクリアしません（再開可能）。
func (s *Session) PauseAuto() *message.Message {
	s.mu.Lock()
	s.autoEnabled = false
	s.state = StatePaused
	s.mu.Unlock()

	msg := message.New(senderSystem, "⏸️ 자동 토론이 일시정지되었습니다.", message.KindSystem)
	s.append(msg, true)
	return msg
}

// ResumeAuto は、自動討論を再開します。既存のキューを再シャッフルしません。
func (s *Session) ResumeAuto() *message.Message {
	s.mu.Lock()
	s.autoEnabled = true
	s.state = StateAutoDiscussing
	s.mu.Unlock()

	msg := message.New(senderSystem, "▶️ 자동 토론이 재개되었습니다.", message.KindSystem)
	s.append(msg, true)
	return msg
}

// RequestIntervention は、ユーザーの発言機会を要求します。どの状態からでも可能です。
func (s *Session) RequestIntervention() *message.Message {
	s.mu.Lock()
	s.interventionPending = true
	s.autoEnabled = false
	s.state = StateUserIntervention
	s.mu.Unlock()

	msg := message.New(senderSystem, "✋ 사용자 개입이 요청되었습니다. 발언해주세요!", message.KindSystem)
	s.append(msg, true)
	s.publish(&bus.Event{Kind: bus.EventInterventionRequested})
	return msg
}

// ContinueAfterIntervention は、ユーザー発言後に自動討論へ復帰します。
func (s *Session) ContinueAfterIntervention() *message.Message {
	s.mu.Lock()
	s.interventionPending = false
	s.autoEnabled = true
	s.state = StateAutoDiscussing
	s.mu.Unlock()

	msg := message.New(senderSystem, "🔄 사용자 발언 후 토론을 재개합니다.", message.KindSystem)
	s.append(msg, true)
	return msg
}

// Stop は、自動討論と介入待ちを解除して Ready に戻します。
// トランスクリプトはクリアしません。
func (s *Session) Stop() *message.Message {
	s.mu.Lock()
	s.autoEnabled = false
	s.interventionPending = false
	s.state = StateReady
	s.mu.Unlock()

	msg := message.New(senderSystem, "⏹️ 자동 토론이 중지되었습니다.", message.KindSystem)
	s.append(msg, true)
	return msg
}

// DisableAuto は、自動討論フラグのみを落とします。
// ドライバーが「聞き手がいない」ことを検出した際に使用します。
func (s *Session) DisableAuto() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoEnabled {
		s.autoEnabled = false
		s.state = StatePaused
	}
}

// --- 討論操作 ---

// InitialOpinions は、すべてのアクティブな専門家から初期意見を収集します。
// 1人の生成失敗はその参加者のプレースホルダに置き換え、残りの収集を続けます。
func (s *Session) InitialOpinions(ctx context.Context) []*message.Message {
	prompt := initialOpinionPrompt(s.Topic(), contextBlock(s.contextCopy()))

	var opinions []*message.Message
	for _, id := range s.Active() {
		p := s.registry.Persona(id)
		text, err := s.generate(ctx, p, prompt)
		if err != nil {
			s.log.Warn("initial opinion generation failed", "identity", id, "error", err)
			text = fmt.Sprintf("%s의 초기 의견을 생성하는 중 오류가 발생했습니다.", p.DisplayName)
		}
		msg := message.New(p.DisplayName, text, message.KindMessage)
		s.append(msg, true)
		opinions = append(opinions, msg)
	}
	return opinions
}

// AskSpecific は、特定の専門家に質問します。
// 名前が解決できない場合は例外ではなく、有効な名前の一覧を含む
// システムメッセージを返します。
func (s *Session) AskSpecific(ctx context.Context, person, question, extra string) (*message.Message, error) {
	id, ok := s.registry.Resolve(person)
	if !ok {
		msg := message.New(
			senderSystem,
			fmt.Sprintf("❌ '%s'을(를) 찾을 수 없습니다. 사용 가능한 전문가: %s", person, s.registry.ExpertNames()),
			message.KindSystem,
		)
		s.append(msg, true)
		return msg, nil
	}

	p := s.registry.Persona(id)
	prompt := askSpecificPrompt(s.Topic(), formatTranscript(s.tail(5)), extra, question)

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		s.appendFailureNote(p.DisplayName)
		return nil, fmt.Errorf("ask specific failed for %s: %w", id, err)
	}

	msg := message.New(p.DisplayName, text, message.KindMessage)
	s.append(msg, true)
	return msg, nil
}

// ContinueDiscussion は、ユーザー発言を追加したうえで進行役が文脈に沿って応答します。
func (s *Session) ContinueDiscussion(ctx context.Context, userInput string) (*message.Message, error) {
	userMsg := message.New(senderUser, userInput, message.KindMessage)
	s.append(userMsg, true)

	p := s.registry.Persona(persona.Moderator)
	prompt := continuePrompt(s.Topic(), formatTranscript(s.tail(10)), userInput)

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		s.appendFailureNote(p.DisplayName)
		return nil, fmt.Errorf("continue discussion failed: %w", err)
	}

	msg := message.New(p.DisplayName, text, message.KindMessage)
	s.append(msg, true)
	return msg, nil
}

// overallFocusAreas は、進行役による全体総合の回答を指すセンチネル値です。
var overallFocusAreas = map[string]struct{}{
	"": {}, "전체": {}, "종합": {},
}

// DeepDive は、これまでの討論結果に対する深掘り質問を処理します。
// focusArea が全体/総合であれば進行役がトランスクリプト全体から総合回答し、
// そうでなければ該当分野の専門家が回答します。
func (s *Session) DeepDive(ctx context.Context, question, focusArea string) (*message.Message, error) {
	if focusArea == "" {
		focusArea = "전체"
	}
	q := message.New(senderUser, fmt.Sprintf("[심화질문-%s] %s", focusArea, question), message.KindQuestion)
	s.append(q, true)

	var p *persona.Persona
	var prompt string
	if _, overall := overallFocusAreas[focusArea]; overall {
		p = s.registry.Persona(persona.Moderator)
		prompt = deepDiveOverallPrompt(s.Topic(), formatTranscript(s.Transcript()), question)
		// アーカイブに関連する過去発言があれば進行役の材料に加える。
		// 検索の失敗は深掘り自体を妨げない。
		if related, err := s.recorder.Search(ctx, s.ID(), question, 3); err == nil {
			prompt += relatedBlock(related)
		}
	} else {
		id, ok := s.registry.Resolve(focusArea)
		if !ok {
			msg := message.New(
				senderSystem,
				fmt.Sprintf("❌ '%s' 전문가를 찾을 수 없습니다.", focusArea),
				message.KindSystem,
			)
			s.append(msg, true)
			return msg, nil
		}
		p = s.registry.Persona(id)
		prompt = deepDiveExpertPrompt(s.Topic(), formatTranscript(s.Transcript()), question)
	}

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		s.appendFailureNote(p.DisplayName)
		return nil, fmt.Errorf("deep dive failed: %w", err)
	}

	msg := message.New(p.DisplayName, text, message.KindResponse)
	s.append(msg, true)
	return msg, nil
}

// Brainstorm は、問題に対してすべてのアクティブな専門家がアイデアを出し、
// 最後に進行役が総合します。1人の生成失敗はプレースホルダに置き換えられ、
// 残りの参加者を妨げません。
func (s *Session) Brainstorm(ctx context.Context, problem string) ([]*message.Message, error) {
	q := message.New(senderUser, fmt.Sprintf("[브레인스토밍] %s", problem), message.KindQuestion)
	s.append(q, true)

	var ideas []*message.Message
	for _, id := range s.Active() {
		p := s.registry.Persona(id)
		text, err := s.generate(ctx, p, brainstormPrompt(s.Topic(), problem))
		if err != nil {
			s.log.Warn("brainstorm generation failed", "identity", id, "error", err)
			text = fmt.Sprintf("⚠️ %s이(가) 의견을 제시하지 못했습니다.", p.DisplayName)
		}
		msg := message.New(p.DisplayName, text, message.KindMessage)
		s.append(msg, true)
		ideas = append(ideas, msg)
	}

	moderator := s.registry.Persona(persona.Moderator)
	synthesis, err := s.generate(ctx, moderator, brainstormSynthesisPrompt(problem, formatTranscript(ideas)))
	if err != nil {
		s.appendFailureNote(moderator.DisplayName)
		return ideas, fmt.Errorf("brainstorm synthesis failed: %w", err)
	}

	msg := message.New(
		moderator.DisplayName,
		fmt.Sprintf("🧠 브레인스토밍 종합 결과:\n\n%s", synthesis),
		message.KindConclusion,
	)
	s.append(msg, true)
	return append(ideas, msg), nil
}

// ImplementationPlan は、進行役が直近の討論を踏まえて実行計画を立てます。
func (s *Session) ImplementationPlan(ctx context.Context, solution string) (*message.Message, error) {
	q := message.New(senderUser, fmt.Sprintf("[실행계획] %s", solution), message.KindQuestion)
	s.append(q, true)

	p := s.registry.Persona(persona.Moderator)
	prompt := implementationPlanPrompt(s.Topic(), solution, formatTranscript(s.tail(20)))

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		s.appendFailureNote(p.DisplayName)
		return nil, fmt.Errorf("implementation plan failed: %w", err)
	}

	msg := message.New(p.DisplayName, fmt.Sprintf("📋 실행 계획:\n\n%s", text), message.KindResponse)
	s.append(msg, true)
	return msg, nil
}

// Conclusion は、進行役がトランスクリプト全体を4項目に要約します。
func (s *Session) Conclusion(ctx context.Context) (*message.Message, error) {
	p := s.registry.Persona(persona.Moderator)
	prompt := conclusionPrompt(s.Topic(), formatTranscript(s.Transcript()))

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		s.appendFailureNote(p.DisplayName)
		return nil, fmt.Errorf("conclusion failed: %w", err)
	}

	msg := message.New(p.DisplayName, text, message.KindConclusion)
	s.append(msg, true)
	return msg, nil
}

// --- 自動討論ドライバー向けの操作 ---

// NextSpeaker は、スピーカーキューを進めて次の発言者を返します。
// 参加者が完全に空の場合は false を返し、呼び出し側はそのターンを中断します。
func (s *Session) NextSpeaker() (persona.Identity, bool) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	return q.Next()
}

// GenerateTurn は、指定された発言者の自動ターンを1回生成して追記します。
// バスへの発行は行いません。イベントの順序（typing_stop の後に message）は
// ドライバーが制御します。キャンセルや生成失敗時には何も追記しません。
func (s *Session) GenerateTurn(ctx context.Context, speaker persona.Identity) (*message.Message, error) {
	p := s.registry.Persona(speaker)
	if p == nil {
		return nil, fmt.Errorf("unknown speaker: %s", speaker)
	}

	if text, ok := s.pickQuickReply(speaker, p); ok {
		msg := message.New(p.DisplayName, text, message.KindMessage)
		s.appendTurn(msg)
		return msg, nil
	}

	prompt := autoTurnPrompt(p.DisplayName, s.Topic(), contextBlock(s.contextCopy()),
		formatTranscript(s.tail(3)))

	text, err := s.generate(ctx, p, prompt)
	if err != nil {
		return nil, fmt.Errorf("auto turn generation failed for %s: %w", speaker, err)
	}

	msg := message.New(p.DisplayName, text, message.KindMessage)
	s.appendTurn(msg)
	return msg, nil
}

// pickQuickReply は、設定された確率で定型応答を選びます。
// 使用済み応答は Identity 単位で追跡し、出尽くしたらリセットします。
func (s *Session) pickQuickReply(id persona.Identity, p *persona.Persona) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quickReplyProb <= 0 || len(p.QuickReplies) == 0 {
		return "", false
	}
	if s.rng.Float64() >= s.quickReplyProb {
		return "", false
	}

	used, ok := s.used[id]
	if !ok {
		used = make(map[string]struct{})
		s.used[id] = used
	}

	var available []string
	for _, r := range p.QuickReplies {
		if _, seen := used[r]; !seen {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		// 全部使い切ったらリセットして次の巡回へ
		s.used[id] = make(map[string]struct{})
		available = p.QuickReplies
	}

	reply := available[s.rng.Intn(len(available))]
	s.used[id][reply] = struct{}{}
	return reply, true
}

// --- 参照系 ---

// Registry は、参加者レジストリを返します。
func (s *Session) Registry() *persona.Registry {
	return s.registry
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AutoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoEnabled
}

func (s *Session) InterventionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interventionPending
}

func (s *Session) Rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds
}

// Active は、アクティブな参加者のコピーを返します。
func (s *Session) Active() []persona.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]persona.Identity(nil), s.active...)
}

// Transcript は、トランスクリプトのスナップショットを返します。
func (s *Session) Transcript() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*message.Message(nil), s.transcript...)
}

// --- 内部ヘルパ ---

// generate は、LLM呼び出しをロックの外で行い、空応答を失敗として扱います。
// バックエンドの実装に関わらず、空白のみの応答はここで拒否されます。
func (s *Session) generate(ctx context.Context, p *persona.Persona, prompt string) (string, error) {
	text, err := s.llm.Generate(ctx, llm.GenerateInput{Persona: p, Prompt: prompt})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// append は、メッセージをトランスクリプトに追記し、必要に応じてバスへ発行し、
// アーカイブへ機会的に記録します。記録の失敗は討論を妨げません。
func (s *Session) append(m *message.Message, publish bool) {
	s.mu.Lock()
	s.transcript = append(s.transcript, m)
	sessionID := s.id
	s.mu.Unlock()

	if publish {
		s.publish(&bus.Event{Kind: bus.EventMessage, Speaker: m.Sender, Message: m})
	}

	if err := s.recorder.Record(context.Background(), memory.Utterance{
		SessionID: sessionID,
		Sender:    m.Sender,
		Content:   m.Content,
		At:        m.At,
	}); err != nil {
		s.log.Warn("failed to record utterance", "error", err)
	}
}

// appendTurn は、自動ターンの成功時にラウンド数を進めつつ追記します。
// バスへの発行はドライバーに委ねます。
func (s *Session) appendTurn(m *message.Message) {
	s.mu.Lock()
	s.rounds++
	s.mu.Unlock()
	s.append(m, false)
}

// appendFailureNote は、生成失敗の監査痕跡をシステムメッセージとして残します。
// 失敗を装う内容は生成しません。
func (s *Session) appendFailureNote(speaker string) {
	note := message.New(
		senderSystem,
		fmt.Sprintf("⚠️ %s의 응답 생성에 실패했습니다.", speaker),
		message.KindSystem,
	)
	s.append(note, true)
}

func (s *Session) publish(e *bus.Event) {
	if err := s.bus.Publish(e); err != nil {
		s.log.Warn("failed to publish event", "kind", e.Kind, "error", err)
	}
}

// tail は、トランスクリプトの末尾 n 件のスナップショットを返します。
func (s *Session) tail(n int) []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.transcript) <= n {
		return append([]*message.Message(nil), s.transcript...)
	}
	return append([]*message.Message(nil), s.transcript[len(s.transcript)-n:]...)
}

func (s *Session) contextCopy() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]string, len(s.context))
	for k, v := range s.context {
		cp[k] = v
	}
	return cp
}

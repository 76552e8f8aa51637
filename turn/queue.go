package turn

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sat8bit/roundtable/persona"
)

// fallbackParticipants は、アクティブな参加者が空になった場合に使われる
// 最小の既定サブセットです。元の設計から引き継いだ既知の特例であり、
// 「参加者ゼロで進行する」事態を避けるための安全弁です。
var fallbackParticipants = []persona.Identity{
	persona.DesignLead,
	persona.SalesLead,
	persona.ProductionLead,
}

// Queue は、アクティブな参加者の中から次の発言者を選ぶローテーション構造です。
// 1巡の中で各参加者がちょうど1回ずつ選ばれ、巡回が尽きると
// 再シャッフルして次の巡回を始めます。
type Queue struct {
	mu         sync.Mutex
	rng        *rand.Rand
	active     []persona.Identity
	pending    []persona.Identity
	current    persona.Identity
	hasCurrent bool
}

// NewQueue は新しい Queue を生成します。
func NewQueue() *Queue {
	return &Queue{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Init は、アクティブな参加者のコピーをランダムに並べ替えて巡回を初期化し、
// 現在の発言者をクリアします。
func (q *Queue) Init(active []persona.Identity) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active = append([]persona.Identity(nil), active...)
	q.refill()
	q.hasCurrent = false
}

// refill は、現在のアクティブ参加者から pending を再構築します。
// 呼び出し側がロックを保持していること。
func (q *Queue) refill() {
	q.pending = append([]persona.Identity(nil), q.active...)
	q.rng.Shuffle(len(q.pending), func(i, j int) {
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	})
}

// Next は、次の発言者を返します。
// 巡回が尽きていればアクティブ参加者から再初期化します。アクティブ参加者も
// 空の場合は既定サブセットにフォールバックします。それでも空であれば
// false を返し、呼び出し側はそのターンを中断しなければなりません。
func (q *Queue) Next() (persona.Identity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.refill()
	}
	if len(q.pending) == 0 {
		q.active = append([]persona.Identity(nil), fallbackParticipants...)
		q.refill()
	}
	if len(q.pending) == 0 {
		return "", false
	}

	next := q.pending[0]
	q.pending = q.pending[1:]
	q.current = next
	q.hasCurrent = true
	return next, true
}

// Current は、直近に選ばれた発言者を返します。
func (q *Queue) Current() (persona.Identity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current, q.hasCurrent
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sat8bit/roundtable/persona"
)

// ErrEmptyResponse は、生成自体は成功したものの中身が空だった場合のエラーです。
// 空の発言はトランスクリプトの会話の流れを壊すため、失敗として扱います。
var ErrEmptyResponse = errors.New("llm: empty response")

type LLM interface {
	// Generate generates text based on the provided prompt.
	Generate(ctx context.Context, input GenerateInput) (string, error)
}

type GenerateInput struct {
	Persona *persona.Persona // 発言者のペルソナ（プロンプトのベース）
	Prompt  string           // セッションが組み立てたプロンプト本文
}

// systemPrompt は、ペルソナ定義からシステムプロンプトを組み立てます。
// 各バックエンドで共通です。
func systemPrompt(p *persona.Persona) string {
	return strings.TrimSpace(fmt.Sprintf(`당신은 "%s"입니다.

역할 목표: %s

%s

전문 분야: %s

응답 규칙:
- 모든 응답은 한국어로 작성합니다.
- 이름이나 역할 표기 없이 발언 내용만 출력합니다.
- 다른 참가자의 발언을 대신 작성하지 않습니다.`,
		p.DisplayName, p.Goal, strings.TrimSpace(p.Backstory), p.Expertise))
}

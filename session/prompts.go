package session

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/sat8bit/roundtable/memory"
	"github.com/sat8bit/roundtable/message"
)

// formatTranscript は、メッセージ列を「発言者: 内容」の形式で連結します。
func formatTranscript(msgs []*message.Message) string {
	lines := lo.Map(msgs, func(m *message.Message, _ int) string {
		return fmt.Sprintf("%s: %s", m.Sender, m.Content)
	})
	return strings.Join(lines, "\n")
}

// relatedBlock は、アーカイブ検索の結果をプロンプトに添える定型文に整形します。
// 結果が空なら空文字列を返します。
func relatedBlock(results []memory.Result) string {
	if len(results) == 0 {
		return ""
	}
	lines := lo.Map(results, func(r memory.Result, _ int) string {
		return fmt.Sprintf("%s: %s", r.Sender, r.Content)
	})
	return "\n\n과거 관련 발언:\n" + strings.Join(lines, "\n")
}

// contextBlock は、会社状況のキー/バリューをプロンプト用の定型文に整形します。
// すべて任意項目で、欠けているものは「정보 없음」になります。
func contextBlock(ctx map[string]string) string {
	get := func(key string) string {
		if v, ok := ctx[key]; ok && v != "" {
			return v
		}
		return "정보 없음"
	}
	return fmt.Sprintf(`**회사 상황:**
- 회사 규모: %s
- 사업 분야: %s
- 연 매출: %s
- 해결 과제: %s`,
		get("company_size"), get("industry"), get("revenue"), get("current_challenge"))
}

func initialOpinionPrompt(topic, contextInfo string) string {
	return fmt.Sprintf(`토론 주제: %s

%s

귀하의 전문 분야 관점에서 이 주제에 대한 초기 입장을 간결하게 제시해주세요.
채팅 형식으로 2-3문장 정도의 핵심 의견만 말씀해주세요.`, topic, contextInfo)
}

func askSpecificPrompt(topic, recent, extra, question string) string {
	return fmt.Sprintf(`토론 주제: %s

최근 대화 내용:
%s

추가 컨텍스트:
%s

질문: %s

위 질문에 대해 귀하의 전문 분야 관점에서 답변해주세요.
채팅 형식으로 자연스럽게 답변해주세요.`, topic, recent, extra, question)
}

func continuePrompt(topic, recent, userInput string) string {
	return fmt.Sprintf(`토론 주제: %s

최근 대화 내용:
%s

사용자가 "%s"라고 말했습니다.

토론 진행자로서 이에 적절히 응답하고, 필요하다면 다른 전문가들의 추가 의견을 요청하거나
토론을 더 발전시킬 수 있는 방향을 제시해주세요.`, topic, recent, userInput)
}

func deepDiveOverallPrompt(topic, full, question string) string {
	return fmt.Sprintf(`토론 주제: %s

전체 토론 내용:
%s

사용자가 "%s"에 대해 심화 질문을 했습니다.

지금까지의 모든 토론 내용을 바탕으로 이 질문에 대해 종합적이고 구체적으로 답변해주세요.
다음 사항을 포함해주세요:
1. 질문에 대한 직접적 답변
2. 관련 데이터나 근거
3. 실행 방안
4. 예상되는 결과
5. 추가 고려사항`, topic, full, question)
}

func deepDiveExpertPrompt(topic, full, question string) string {
	return fmt.Sprintf(`토론 주제: %s

전체 토론 내용:
%s

사용자가 "%s"에 대해 귀하의 전문 분야와 관련된 심화 질문을 했습니다.

귀하의 전문성을 바탕으로 이 질문에 대해 구체적이고 실용적으로 답변해주세요.
다음 사항을 포함해주세요:
1. 전문 분야 관점에서의 답변
2. 구체적인 데이터나 사례
3. 실행 시 고려사항
4. 성공 요인과 리스크`, topic, full, question)
}

func brainstormPrompt(topic, problem string) string {
	return fmt.Sprintf(`토론 주제: %s
브레인스토밍 문제: %s

귀하의 전문 분야 관점에서 이 문제에 대한 창의적이고 실용적인 해결 아이디어를 제시해주세요.

다음 형식으로 답변해주세요:
1. 핵심 아이디어 (1줄 요약)
2. 구체적 실행 방법
3. 예상 효과
4. 필요 자원

짧고 명확하게 작성해주세요.`, topic, problem)
}

func brainstormSynthesisPrompt(problem, allIdeas string) string {
	return fmt.Sprintf(`브레인스토밍 문제: %s

각 전문가의 아이디어:
%s

위의 모든 아이디어를 분석하고 다음을 제시해주세요:
1. 가장 유망한 아이디어 TOP 3
2. 아이디어들의 시너지 방안
3. 통합 실행 계획
4. 우선순위와 타임라인`, problem, allIdeas)
}

func implementationPlanPrompt(topic, solution, recent string) string {
	return fmt.Sprintf(`토론 주제: %s
요청된 솔루션: %s

최근 토론 내용:
%s

"%s"에 대한 구체적이고 실행 가능한 계획을 수립해주세요.

다음 항목을 포함해주세요:
1. 실행 단계별 세부 계획 (1단계, 2단계, 3단계...)
2. 각 단계별 소요 기간
3. 필요 자원 (인력, 예산, 기술 등)
4. 담당 부서별 역할 분담
5. 성과 측정 지표 (KPI)
6. 리스크 요소와 대응책
7. 마일스톤과 체크포인트`, topic, solution, recent, solution)
}

func conclusionPrompt(topic, full string) string {
	return fmt.Sprintf(`토론 주제: %s

지금까지의 토론 내용:
%s

현재까지의 토론 내용을 바탕으로 중간 결론을 정리해주세요:
1. 주요 합의 사항
2. 여전히 논의가 필요한 부분
3. 현재까지 제시된 실행 방안
4. 다음 논의 방향`, topic, full)
}

func autoTurnPrompt(role, topic, contextInfo, recent string) string {
	return fmt.Sprintf(`%s의 전문성을 바탕으로 다음 주제에 대한 의견을 2-3문장으로 간단히 제시하세요:

주제: %s

%s

최근 논의:
%s

%s의 관점에서 구체적이고 실무적인 의견을 제시해주세요.`, role, topic, contextInfo, recent, role)
}

package ai

import "strings"

const ConversationSystemPrompt = "당신은 사이버폭력 분석을 전문으로 하는 AI 애널리스트입니다. 주어진 대화 내용을 문장 단위로 정밀하게 분석하여 폭력성, 유형, 가해자, 피해자, 위험도를 판별하는 임무를 수행합니다. 모든 답변은 요청된 형식에 따라 매우 엄격하게 작성해야 합니다."

const conversationPromptTemplate = `# 분석 대상 대화
[ {{TRANSCRIPT}} ]

# 출력 형식 (Output Format)
아래 규칙을 반드시, 100% 준수하여 결과를 생성해야 합니다.

1.  **결과는 반드시 마크다운 표(Markdown Table)로 시작**해야 합니다.
2.  표의 위나 아래에 제목, 코드 블록, 설명 등 **어떠한 다른 텍스트도 추가하지 마세요.**
3.  표의 열(Column)은 ` + "`문장`, `유형`, `피해자`, `가해자`, `위험도`, `해설`" + ` 순서여야 하며, **절대 순서를 바꾸거나 합치지 마세요.**
4.  ` + "`유형`은 `욕설`, `비하`, `모욕`, `따돌림`, `위협`, `괴롭힘` 중에서만 선택하고, 해당 없으면 `-`로 표기하세요." + `
5.  ` + "`위험도`는 `없음`, `의심`, `약간 있음`, `있음`, `심각` 중에서만 선택하세요." + `
6.  ` + "`해설`은 판단 근거를 한 줄로 간결하게 요약하여 작성하세요." + `
7.  **표 바로 아래에는 다음 세 가지 항목을 순서대로, 정확한 문구로 작성**해야 합니다.
    * ` + "`전체 대화 사이버폭력 위험도:`" + ` [없음/의심/약간 있음/있음/심각] 중 하나로 결론
    * ` + "`대화 전체 분위기 요약:`" + ` 2~3문장으로 요약
    * ` + "`잠재적 위험/주의사항:`" + ` 구체적인 내용 서술

# 출력 예시 (Example)
| 문장 | 유형 | 피해자 | 가해자 | 위험도 | 해설 |
| :--- | :--- | :--- | :--- | :--- | :--- |
| 너 때문에 다 망했어 | 비하 | 민수 | 철수 | 있음 | 특정인의 탓으로 돌리며 비난하는 발언 |
| 그런 애랑 말 섞지 마 | 따돌림 | 민수 | 철수 | 심각 | 관계에서 명시적으로 배제하려는 의도를 보임 |
| 그냥 사라져 버려 | 위협 | 민수 | 철수 | 심각 | 극단적인 언어로 공포심을 유발하는 발언 |

전체 대화 사이버폭력 위험도: 심각

대화 전체 분위기 요약: 한 명을 대상으로 여러 명이 비난과 따돌림, 위협적인 발언을 이어가고 있습니다. 대화가 진행될수록 공격의 수위가 높아지는 양상입니다.

잠재적 위험/주의사항: 직접적인 위협과 사회적 배제는 피해자에게 심각한 정신적 고통을 줄 수 있습니다. 즉각적인 개입과 보호 조치가 필요한 상황입니다.`

// BuildConversationPrompt embeds transcript in the analysis instructions.
func BuildConversationPrompt(transcript string) string {
	return strings.Replace(conversationPromptTemplate, "{{TRANSCRIPT}}", transcript, 1)
}

package saju

import (
	"fmt"
	"strings"

	"github.com/sajulab/sajuback/pkg/types"
)

// buildPrompt renders the fixed analysis instruction deterministically from
// the input parameters. The template asks the model for structured sections
// and a JSON payload with summary and full_analysis fields.
func buildPrompt(req *AnalyzeRequest) string {
	genderText := "여성"
	if req.Gender == types.GenderMale {
		genderText = "남성"
	}

	birthTimeText := "출생시간 정보 없음"
	if req.IsBirthTimeUnknown {
		birthTimeText = "출생시간을 알 수 없음"
	} else if req.BirthTime != nil && *req.BirthTime != "" {
		birthTimeText = "출생시간: " + *req.BirthTime
	}

	return strings.TrimSpace(fmt.Sprintf(`
당신은 전문 사주 명리학자입니다. 다음 정보를 바탕으로 상세한 사주 분석을 해주세요.

[개인 정보]
- 이름: %s
- 생년월일: %s
- %s
- 성별: %s

[요청 사항]
1. 사주팔자 구성 (천간, 지지)
2. 오행 분석 (목, 화, 토, 금, 수)
3. 성격 및 기질 분석
4. 건강 운세
5. 재물 운세
6. 애정 및 대인 관계 운세
7. 직업 및 진로 조언
8. 주의해야 할 점

[응답 형식]
다음 JSON 형식으로 응답해주세요:
{
  "summary": "200자 이내의 핵심 요약",
  "full_analysis": "상세 분석 내용 (마크다운 형식)"
}
`, req.TestName, req.BirthDate, birthTimeText, genderText))
}

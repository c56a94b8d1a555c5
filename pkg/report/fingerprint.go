package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/cyberph/posture/pkg/assessment"
)

// Fingerprint identifies the answer set a report was produced from: two
// sessions with the same organization, date and answers share it, in any
// answer order. It is 32 hex characters.
func Fingerprint(s *assessment.Session) string {
	if s == nil {
		return strings.Repeat("0", 32)
	}

	answers := append([]assessment.Answer(nil), s.Answers...)
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	h := murmur3.New128()
	fmt.Fprintf(h, "%s\x00%s\x00", strings.TrimSpace(s.Organization), s.AssessmentDate)
	for _, a := range answers {
		fmt.Fprintf(h, "%s=%s\n", a.QuestionID, strings.ToLower(strings.TrimSpace(a.Option)))
	}
	hi, lo := h.Sum128()
	return fmt.Sprintf("%016x%016x", hi, lo)
}

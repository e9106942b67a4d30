package classify

import "fmt"

// reasonTemplates are the per-category explanation sentences.
var reasonTemplates = map[Category]string{
	Competitive:       "Competitor activity detected around %s",
	ThesisChallenging: "Challenges assumptions about %s",
	Opportunity:       "Potential opportunity signal around %s",
	Technical:         "Technically relevant development in %s",
	Trend:             "Growing attention on %s",
}

// Reason renders the explanation sentence for a classification, referencing
// the extracted topic.
func Reason(res Result, topic string) string {
	tmpl, ok := reasonTemplates[res.Type]
	if !ok {
		tmpl = reasonTemplates[Technical]
	}
	return fmt.Sprintf(tmpl, topic)
}

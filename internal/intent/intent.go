package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind string

const (
	// KindRateLookup answers from the static rate table without a network call.
	KindRateLookup Kind = "rate_lookup"
	// KindEmailSummary starts the email-a-summary dialog.
	KindEmailSummary Kind = "email_summary"
	// KindGeneral is the fallback: forward to the remote assistant.
	KindGeneral Kind = "general"
)

type Intent struct {
	Kind Kind
	// RateKey is "10".."100" or "general" when Kind is KindRateLookup.
	RateKey string
}

// Rate questions must mention one of these to qualify for an instant answer.
var rateKeywords = []string{
	"how much", "rate", "payment", "compensation", "amount", "pay", "money",
	"receive", "get paid",
}

// Complexity keywords veto the instant answer unconditionally: a question that
// mentions surgery, appeals, rating changes and the like needs the assistant,
// not a canned dollar figure.
var complexKeywords = []string{
	"reduce", "surgery", "repair", "increase", "appeal", "exam", "c&p",
	"rating", "condition", "cut", "lower", "lose", "decrease", "change",
	"affect", "impact", "medical", "doctor", "treatment",
}

// Phrases that request an emailed summary. The bare quick-action label is
// matched by equality instead.
var emailPhrases = []string{
	"email me a summary", "email me the summary", "send me a summary",
	"send me the summary", "email a summary", "send a summary",
	"summary to my email", "email the summary",
}

var (
	percentSign = regexp.MustCompile(`(\d{1,3})%`)
	percentWord = regexp.MustCompile(`(\d{1,3})\s*percent`)
	bareNumber  = regexp.MustCompile(`\b(\d{1,3})\b`)
	numberWords = regexp.MustCompile(`\b(ten|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|one hundred|hundred)\b`)
)

var wordToRate = map[string]string{
	"ten": "10", "twenty": "20", "thirty": "30", "forty": "40", "fifty": "50",
	"sixty": "60", "seventy": "70", "eighty": "80", "ninety": "90",
	"hundred": "100", "one hundred": "100",
}

// Classify decides what a submission is asking for. It is a pure function
// over the text and the static keyword tables.
func Classify(message string) Intent {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return Intent{Kind: KindGeneral}
	}

	if m == "email summary" || containsAny(m, emailPhrases) {
		return Intent{Kind: KindEmailSummary}
	}

	if key, ok := detectRateKey(m); ok {
		return Intent{Kind: KindRateLookup, RateKey: key}
	}
	return Intent{Kind: KindGeneral}
}

// detectRateKey mirrors the instant-response matcher: a rate keyword is
// required, any complexity keyword vetoes the match, and a number is only
// accepted as a multiple of ten between 10 and 100. Order matters: explicit
// percentages win over bare numbers, which win over spelled-out words.
func detectRateKey(m string) (string, bool) {
	if !containsAny(m, rateKeywords) || containsAny(m, complexKeywords) {
		return "", false
	}

	for _, re := range []*regexp.Regexp{percentSign, percentWord, bareNumber} {
		if match := re.FindStringSubmatch(m); match != nil {
			n, err := strconv.Atoi(match[1])
			if err == nil && n >= 10 && n <= 100 && n%10 == 0 {
				return strconv.Itoa(n), true
			}
		}
	}

	if match := numberWords.FindStringSubmatch(m); match != nil {
		if key, ok := wordToRate[match[1]]; ok {
			return key, true
		}
	}

	if strings.Contains(m, "rates") || strings.Contains(m, "compensation") {
		return "general", true
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

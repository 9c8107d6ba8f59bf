package gate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Digit runs are captured whole so inRange sees 1000 as 1000, not 100.
	strictJSONRe = regexp.MustCompile(`\{\s*"confidence"\s*:\s*(\d+)\s*}`)
	bareIntRe    = regexp.MustCompile(`^\s*(\d+)\s*%?\s*$`)
	assignRe     = regexp.MustCompile(`(?i)confidence["']?\s*[:=]\s*["']?(\d+)`)
	phraseRe     = regexp.MustCompile(`(?i)confidence(?:\s+score)?\s+(?:is|equals|score|value|rating)\s*:?\s*(\d+)`)
)

// ParseConfidence extracts a 0..100 confidence from a model reply. Patterns are
// tried from strictest to loosest; a value outside 0..100 does not count.
func ParseConfidence(reply string) (int, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return 0, false
	}
	if n, ok := submatchInt(strictJSONRe, reply); ok {
		return n, true
	}
	if n, ok := submatchInt(bareIntRe, reply); ok {
		return n, true
	}
	if n, ok := jsonConfidence(reply); ok {
		return n, true
	}
	if n, ok := submatchInt(assignRe, reply); ok {
		return n, true
	}
	if n, ok := submatchInt(phraseRe, reply); ok {
		return n, true
	}
	return 0, false
}

func submatchInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return inRange(n)
}

func inRange(n int) (int, bool) {
	if n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// jsonConfidence decodes the outermost {...} of the reply (models like to wrap
// JSON in prose or code fences) and reads a "confidence" field of any case.
func jsonConfidence(reply string) (int, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return 0, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &obj); err != nil {
		return 0, false
	}
	for k, v := range obj {
		if !strings.EqualFold(k, "confidence") {
			continue
		}
		switch val := v.(type) {
		case float64:
			return inRange(int(math.Round(val)))
		case string:
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(val), "%"))
			if err != nil {
				return 0, false
			}
			return inRange(n)
		}
	}
	return 0, false
}

var acceptKeywords = []string{
	"yes", "accept", "accepted", "relevant", "related", "valid", "fine", "ok", "okay",
	"approved", "on-topic", "in scope",
	"tak", "dotyczy", "zgodne", "zgodna", "akceptuję", "akceptuje", "w zakresie",
}

var rejectKeywords = []string{
	"no", "reject", "rejected", "irrelevant", "unrelated", "not related", "invalid",
	"off-topic", "off topic", "out of scope",
	"nie", "odrzuć", "odrzuc", "odrzucone", "niezwiązane", "niezwiazane", "poza zakresem",
}

// keywordVerdict is the fallback when no confidence could be parsed. It
// accepts unless the reply only carries rejection keywords.
func keywordVerdict(reply string) (allowed, ambiguous bool) {
	padded := words(reply)
	accept := containsAny(padded, acceptKeywords)
	reject := containsAny(padded, rejectKeywords)
	switch {
	case accept && !reject:
		return true, false
	case reject && !accept:
		return false, false
	default:
		return true, true
	}
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if hasWord(padded, p) {
			return true
		}
	}
	return false
}

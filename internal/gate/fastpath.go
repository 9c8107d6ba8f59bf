package gate

import "strings"

type FastKind string

const (
	FastGreeting FastKind = "greeting"
	FastPurpose  FastKind = "purpose"
)

// FastReply is a canned answer produced without calling the model.
type FastReply struct {
	Kind FastKind
	Text string
}

var greetings = []string{
	"cześć", "czesc", "hej", "hejka", "siema", "siemka", "witam", "witaj",
	"dzień dobry", "dzien dobry", "dobry wieczór", "dobry wieczor",
	"hello", "hi", "hey", "good morning",
}

var purposeQueries = []string{
	"co potrafisz", "co umiesz", "co możesz", "co mozesz",
	"kim jesteś", "kim jestes", "czym jesteś", "czym jestes",
	"do czego służysz", "do czego sluzysz", "do czego jesteś", "do czego jestes",
	"jak możesz mi pomóc", "jak mozesz mi pomoc", "w czym możesz pomóc", "w czym mozesz pomoc",
	"jakie jest twoje zadanie", "jakie masz zadanie", "czym się zajmujesz", "czym sie zajmujesz",
	"what can you do", "who are you", "what are you for", "how can you help",
}

var greetingReplies = []string{
	"Cześć! Jestem asystentem do spraw anonimizacji i etyki przetwarzania danych osobowych. W czym mogę pomóc?",
	"Dzień dobry! Chętnie odpowiem na pytania o anonimizację danych i ochronę danych osobowych.",
	"Witaj! Zapytaj mnie o metody anonimizacji albo o ryzyka związane z przetwarzaniem danych osobowych.",
}

const purposeReply = "Pomagam firmom zrozumieć, jak etycznie przetwarzać dane osobowe. " +
	"Wyjaśniam metody anonimizacji i pseudonimizacji, zagrożenia wynikające z braku lub nieodpowiedniej anonimizacji " +
	"oraz podpowiadam, jak zanonimizować konkretną kolumnę danych na podstawie jej nazwy."

// isGreeting matches a greeting exactly or as a standalone word bounded by
// spaces or the string edges.
func isGreeting(normalized string) bool {
	for _, g := range greetings {
		if normalized == g ||
			strings.HasPrefix(normalized, g+" ") ||
			strings.HasSuffix(normalized, " "+g) ||
			strings.Contains(normalized, " "+g+" ") {
			return true
		}
	}
	return false
}

func isPurposeQuery(normalized string) bool {
	for _, q := range purposeQueries {
		if strings.Contains(normalized, q) {
			return true
		}
	}
	return false
}

// FastPath returns a canned reply for greetings and questions about the
// assistant itself. The input must already be passed through Normalize.
func (g *Gate) FastPath(normalized string) (FastReply, bool) {
	switch {
	case normalized == "":
		return FastReply{}, false
	case isGreeting(normalized):
		return FastReply{Kind: FastGreeting, Text: greetingReplies[g.pick(len(greetingReplies))]}, true
	case isPurposeQuery(normalized):
		return FastReply{Kind: FastPurpose, Text: purposeReply}, true
	}
	return FastReply{}, false
}

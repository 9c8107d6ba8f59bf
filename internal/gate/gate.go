package gate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"privacy-chatter/internal/llm"
)

const DefaultThreshold = 60

const filterPrompt = `Jesteś filtrem wiadomości dla asystenta edukującego na temat etyki w przetwarzaniu danych osobowych.
Użytkownicy to firmy, które chcą dowiedzieć się więcej o takich tematach jak:
- anonimizacja danych,
- zagrożenia związane z brakiem anonimizacji,
- ochrona danych osobowych i prywatność,
- etyczne wykorzystanie danych.

Oceń, w jakim stopniu ostatnia wiadomość użytkownika dotyczy co najmniej jednego z poniższych tematów
lub jest naturalną kontynuacją dotychczasowej rozmowy na te tematy:
1. anonimizacja danych,
2. ochrona danych osobowych i prywatność,
3. etyka przetwarzania danych,
4. prośba o więcej informacji lub doprecyzowanie poprzedniej odpowiedzi,
5. pytanie o Twoje zadanie lub zastosowanie,
6. powitanie.

Weź pod uwagę kontekst poprzednich wiadomości i odpowiedzi.

Zwróć wyłącznie procentową pewność jako liczbę całkowitą od 0 do 100, w formacie:
{ "confidence": XX }

Nie dodawaj żadnych dodatkowych komentarzy ani tekstu. Tylko czysty JSON.`

type Reason string

const (
	ReasonConfidence Reason = "confidence"
	// ReasonKeywords means no confidence could be parsed and the reply text decided.
	ReasonKeywords Reason = "keywords"
	// ReasonAmbiguous means neither confidence nor keywords decided; accepted.
	ReasonAmbiguous Reason = "ambiguous"
	// ReasonFailOpen means the check itself failed; accepted.
	ReasonFailOpen Reason = "fail_open"
)

type Decision struct {
	Allowed       bool
	Confidence    int
	HasConfidence bool
	Reason        Reason
	// Err is the check failure behind a ReasonFailOpen decision.
	Err error
}

type Options struct {
	// Model for the side-channel check; empty uses the client's default.
	Model     string
	Threshold int
	Logger    *slog.Logger
}

// Gate decides whether a user message is within the assistant's topic.
type Gate struct {
	client    llm.Client
	model     string
	threshold int
	logger    *slog.Logger
	pick      func(n int) int
}

func New(client llm.Client, opts Options) *Gate {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gate{
		client:    client,
		model:     opts.Model,
		threshold: opts.Threshold,
		logger:    opts.Logger,
		pick:      rand.Intn,
	}
}

// BuildCheckRequest assembles the filter instruction, the conversation so far and the new message.
func (g *Gate) BuildCheckRequest(history []llm.Message, prompt string) llm.ChatRequest {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: filterPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})
	return llm.ChatRequest{Model: g.model, Messages: msgs}
}

// Check asks the model how closely prompt relates to the topic. It never
// blocks a message because of its own failure.
func (g *Gate) Check(ctx context.Context, history []llm.Message, prompt string) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Decision{Allowed: true, Reason: ReasonFailOpen, Err: fmt.Errorf("topic check panicked: %v", r)}
			g.logger.Error("topic check panicked, accepting", "panic", r)
		}
	}()

	resp, err := g.client.Complete(ctx, g.BuildCheckRequest(history, prompt))
	if err != nil {
		g.logger.Warn("topic check failed, accepting", "error", err)
		return Decision{Allowed: true, Reason: ReasonFailOpen, Err: err}
	}
	reply, _ := resp.FirstContent()
	return g.Decide(reply)
}

// Decide turns a filter reply into a decision.
func (g *Gate) Decide(reply string) Decision {
	if n, ok := ParseConfidence(reply); ok {
		g.logger.Info("topic confidence", "confidence", n, "threshold", g.threshold)
		return Decision{Allowed: n >= g.threshold, Confidence: n, HasConfidence: true, Reason: ReasonConfidence}
	}
	allowed, ambiguous := keywordVerdict(reply)
	reason := ReasonKeywords
	if ambiguous {
		reason = ReasonAmbiguous
	}
	g.logger.Info("topic confidence unparseable, using keywords", "allowed", allowed, "reason", reason)
	return Decision{Allowed: allowed, Reason: reason}
}

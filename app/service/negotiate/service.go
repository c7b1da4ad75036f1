package negotiate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/HeyGuihi/CrioloWhatsApp/app/client/openai"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/calendar"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/history"
	"github.com/samber/do"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

const (
	fallbackAttendee = "Cliente"

	conflictNotice = "Desculpe, esse horário já está ocupado. Por favor, escolha outro horário."
	clarifyNotice  = "Só para confirmar: qual horário fica melhor para você?"
	dayFullReply   = "Infelizmente não tenho mais horários livres para amanhã. Podemos tentar outro dia?"
	fallbackReply  = "Desculpe, tive um problema técnico por aqui. Pode repetir sua mensagem em instantes?"
)

var weekdayLabels = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

// Generator produces a candidate reply from a system prompt and the
// contact's conversation window.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, turns []history.Turn) (string, error)
}

// Service drives one negotiation turn per inbound message: it assembles the
// prompt, interprets the generated reply and is the only place where the
// calendar and the history are mutated together.
type Service struct {
	calendarSvc *calendar.Service
	historySvc  *history.Service
	generator   Generator

	now func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*calendar.Service](di),
		do.MustInvoke[*history.Service](di),
		do.MustInvoke[*openai.Client](di),
	), nil
}

func NewService(calendarSvc *calendar.Service, historySvc *history.Service, generator Generator) *Service {
	return &Service{
		calendarSvc: calendarSvc,
		historySvc:  historySvc,
		generator:   generator,
		now:         time.Now,
	}
}

// Handle runs the per-message protocol and returns the outbound reply text.
// It never surfaces internal errors to the contact; every failure path
// produces a polite fixed message instead.
func (s *Service) Handle(ctx context.Context, contactID, text string) string {
	s.historySvc.Append(contactID, history.Turn{
		Role:    history.RoleUser,
		Content: text,
	})

	target := s.now().AddDate(0, 0, 1)
	targetDate := target.Format("2006-01-02")
	weekday := weekdayLabels[target.Weekday()]

	suggestedTime, ok := s.calendarSvc.NextAvailable(targetDate)
	if !ok {
		s.appendAssistant(contactID, dayFullReply)
		return dayFullReply
	}

	prompt := s.buildPrompt(targetDate, weekday, suggestedTime)

	generated, err := s.generator.Generate(ctx, prompt, s.historySvc.Get(contactID))
	if err != nil {
		slog.Error("Failed to generate reply",
			"contact_id", contactID,
			"error", err)

		// The user turn stays, the failed exchange leaves no assistant turn.
		return fallbackReply
	}

	reply := StripReasoning(generated)

	if HasConfirmationMarker(reply) {
		reply = s.tryCommit(contactID, targetDate, weekday, reply)
	}

	s.appendAssistant(contactID, reply)

	return reply
}

// tryCommit attempts the marker-gated booking. Proposals are advisory; the
// calendar's own availability re-check decides who wins a contested slot.
func (s *Service) tryCommit(contactID, targetDate, weekday, reply string) string {
	slotTime, ok := ExtractTime(reply)
	if !ok {
		return reply + "\n" + clarifyNotice
	}

	attendee, ok := s.historySvc.FirstUserUtterance(contactID)
	if !ok {
		attendee = fallbackAttendee
	}

	_, err := s.calendarSvc.Commit(targetDate, weekday, slotTime, attendee)

	switch {
	case err == nil:
		return reply

	case errors.Is(err, calendar.ErrSlotTaken):
		slog.Info("Slot conflict during commit",
			"contact_id", contactID,
			"date", targetDate,
			"time", slotTime)

		return reply + "\n" + conflictNotice

	default:
		slog.Error("Failed to commit meeting",
			"contact_id", contactID,
			"date", targetDate,
			"time", slotTime,
			"error", err)

		// Persistence failed, so nothing is booked. The generated text
		// already claims success and must not go out.
		return fallbackReply
	}
}

func (s *Service) buildPrompt(targetDate, weekday, suggestedTime string) string {
	templateValues := map[string]string{
		"target_date":     targetDate,
		"weekday":         weekday,
		"suggested_time":  suggestedTime,
		"available_times": strings.Join(s.calendarSvc.AvailableTimes(), ", "),
		"booked_times":    formatBooked(s.calendarSvc.BookedTimes(targetDate)),
		"marker":          ConfirmationMarker,
	}

	prompt := systemPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", value)
	}

	return prompt
}

func formatBooked(times []string) string {
	if len(times) == 0 {
		return "nenhum"
	}

	return strings.Join(times, ", ")
}

func (s *Service) appendAssistant(contactID, text string) {
	s.historySvc.Append(contactID, history.Turn{
		Role:    history.RoleAssistant,
		Content: text,
	})
}

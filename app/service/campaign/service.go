package campaign

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/HeyGuihi/CrioloWhatsApp/app/client/gateway"
	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

const namePlaceholder = "[NOME]"

type Contact struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type Report struct {
	Sent   int
	Failed int
}

// Service sends the one-shot opening message to a list of contacts. It
// shares only the outbound transport with the negotiation core, never the
// calendar or the histories.
type Service struct {
	cfg    config.Campaign
	sender gateway.Sender
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Campaign, do.MustInvoke[*gateway.Client](di)), nil
}

func NewService(cfg config.Campaign, sender gateway.Sender) *Service {
	return &Service{
		cfg:    cfg,
		sender: sender,
	}
}

// Run loads the contact list and sends one personalized opening message per
// contact. A failed send is logged and does not abort the remaining sends.
func (s *Service) Run(ctx context.Context) (Report, error) {
	contacts, err := s.loadContacts()
	if err != nil {
		return Report{}, err
	}

	var sent, failed atomic.Int64

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)

	for _, contact := range contacts {
		contact := contact
		group.Go(func() error {
			text := strings.ReplaceAll(s.cfg.Message, namePlaceholder, contact.Name)

			if err := s.sender.Send(ctx, contact.Phone, text); err != nil {
				failed.Add(1)
				slog.Error("Failed to send campaign message",
					"phone", contact.Phone,
					"error", err)
				return nil
			}

			sent.Add(1)
			slog.Info("Campaign message sent", "phone", contact.Phone)

			return nil
		})
	}

	_ = group.Wait()

	report := Report{
		Sent:   int(sent.Load()),
		Failed: int(failed.Load()),
	}

	slog.Info("Campaign finished",
		"sent", report.Sent,
		"failed", report.Failed,
		"telegram", true)

	return report, nil
}

func (s *Service) loadContacts() ([]Contact, error) {
	data, err := os.ReadFile(s.cfg.ContactsPath)
	if err != nil {
		return nil, oops.Errorf("failed to read contacts file: %w", err)
	}

	var contacts []Contact
	if err = json.Unmarshal(data, &contacts); err != nil {
		return nil, oops.Errorf("failed to parse contacts file: %w", err)
	}

	return pie.Filter(contacts, func(c Contact) bool {
		return c.Phone != ""
	}), nil
}

package server

import (
	"errors"
	"log/slog"

	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/calendar"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/campaign"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/dispatch"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

// Server is the inbound edge: the messaging transport posts received
// messages here and gets an immediate ack, the reply is delivered
// asynchronously through the gateway once the contact's worker is done.
type Server struct {
	cfg         *config.Config
	dispatchSvc *dispatch.Service
	calendarSvc *calendar.Service
	campaignSvc *campaign.Service

	app      *fiber.App
	validate *validator.Validate
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:         do.MustInvoke[*config.Config](di),
		dispatchSvc: do.MustInvoke[*dispatch.Service](di),
		calendarSvc: do.MustInvoke[*calendar.Service](di),
		campaignSvc: do.MustInvoke[*campaign.Service](di),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	s.app.Post("/v1/messages", s.handleInbound)
	s.app.Get("/v1/meetings", s.handleListMeetings)
	s.app.Delete("/v1/meetings/:date/:time", s.handleCancelMeeting)
	s.app.Post("/v1/campaign", s.handleCampaign)

	return s, nil
}

type inboundMessage struct {
	ContactID string `json:"contact_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

func (s *Server) handleInbound(c *fiber.Ctx) error {
	var msg inboundMessage

	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if err := s.validate.Struct(msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "contact_id and text are required")
	}

	s.dispatchSvc.Enqueue(msg.ContactID, msg.Text)

	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleListMeetings(c *fiber.Ctx) error {
	return c.JSON(s.calendarSvc.Meetings())
}

func (s *Server) handleCancelMeeting(c *fiber.Ctx) error {
	err := s.calendarSvc.Cancel(c.Params("date"), c.Params("time"))

	switch {
	case errors.Is(err, calendar.ErrNoMeeting):
		return fiber.NewError(fiber.StatusNotFound, "no meeting at this slot")
	case err != nil:
		slog.Error("Failed to cancel meeting", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "cancellation failed")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleCampaign(c *fiber.Ctx) error {
	report, err := s.campaignSvc.Run(c.UserContext())
	if err != nil {
		slog.Error("Campaign failed to start", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "campaign failed")
	}

	return c.JSON(fiber.Map{
		"sent":   report.Sent,
		"failed": report.Failed,
	})
}

func (s *Server) Run() error {
	slog.Info("Webhook server listening", "addr", s.cfg.Server.Listen)

	return s.app.Listen(s.cfg.Server.Listen)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

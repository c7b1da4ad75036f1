package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HeyGuihi/CrioloWhatsApp/app/client/gateway"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/negotiate"
	"github.com/samber/do"
)

const bufferSize = 16

var _ do.Shutdownable = (*Service)(nil)

// Service serializes message handling per contact: one queue and one worker
// goroutine per contact id, created lazily. A generation call suspends only
// that contact's worker, so a burst from one contact can never interleave
// with itself while different contacts still progress concurrently.
type Service struct {
	ctx          context.Context
	negotiateSvc *negotiate.Service
	sender       gateway.Sender

	mu      sync.Mutex
	queues  map[string]chan string
	closed  bool
	workers sync.WaitGroup
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[context.Context](di),
		do.MustInvoke[*negotiate.Service](di),
		do.MustInvoke[*gateway.Client](di),
	), nil
}

func NewService(ctx context.Context, negotiateSvc *negotiate.Service, sender gateway.Sender) *Service {
	return &Service{
		ctx:          ctx,
		negotiateSvc: negotiateSvc,
		sender:       sender,
		queues:       make(map[string]chan string),
	}
}

// Enqueue hands an inbound message to the contact's worker. A full queue
// drops the message with a warning instead of blocking the transport.
func (s *Service) Enqueue(contactID, text string) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return
	}

	queue, ok := s.queues[contactID]
	if !ok {
		queue = make(chan string, bufferSize)
		s.queues[contactID] = queue

		s.workers.Add(1)
		go s.runWorker(contactID, queue)
	}

	s.mu.Unlock()

	// Shutdown may close the queue between the unlock and the send.
	defer func() {
		_ = recover()
	}()

	select {
	case queue <- text:
	default:
		slog.Warn("Contact queue is full, dropping message", "contact_id", contactID)
	}
}

func (s *Service) runWorker(contactID string, queue <-chan string) {
	defer s.workers.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case text, ok := <-queue:
			if !ok {
				return
			}

			s.process(contactID, text)
		}
	}
}

func (s *Service) process(contactID, text string) {
	start := time.Now()

	reply := s.negotiateSvc.Handle(s.ctx, contactID, text)

	if err := s.sender.Send(s.ctx, contactID, reply); err != nil {
		// Delivery failures are logged, never fatal and never retried here.
		slog.Error("Failed to deliver reply",
			"contact_id", contactID,
			"error", err)
		return
	}

	slog.Info("Processed message",
		"contact_id", contactID,
		"duration", time.Since(start))
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	s.closed = true
	for _, queue := range s.queues {
		close(queue)
	}
	s.mu.Unlock()

	s.workers.Wait()

	return nil
}

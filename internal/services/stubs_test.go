package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fotolio/internal/gateway"
)

// stubGateway records checkout sessions and can be told to fail.
type stubGateway struct {
	mu       sync.Mutex
	sessions []gateway.CheckoutInput
	failNext bool
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, input gateway.CheckoutInput) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext {
		g.failNext = false
		return "", "", errors.New("gateway unavailable")
	}
	g.sessions = append(g.sessions, input)
	sessionID := fmt.Sprintf("cs_test_%d", len(g.sessions))
	return sessionID, "https://checkout.test/" + sessionID, nil
}

func (g *stubGateway) VerifyWebhook([]byte, string) (gateway.Event, error) {
	return nil, errors.New("not used in tests")
}

// stubObjectStore serves a fixed key set and counts deletions.
type stubObjectStore struct {
	mu      sync.Mutex
	keys    []string
	deleted int
	batches []int
	listErr error
}

func (s *stubObjectStore) ListPage(_ context.Context, prefix, startAfter string, max int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var page []string
	for _, key := range s.keys {
		if startAfter != "" && key <= startAfter {
			continue
		}
		page = append(page, key)
		if len(page) == max {
			break
		}
	}
	return page, nil
}

func (s *stubObjectStore) DeleteBatch(_ context.Context, keys []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, len(keys))
	remaining := s.keys[:0]
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		drop[key] = true
	}
	for _, key := range s.keys {
		if drop[key] {
			s.deleted++
			continue
		}
		remaining = append(remaining, key)
	}
	s.keys = remaining
	return len(keys), nil
}

// stubMailer records notices without dialing anything.
type stubMailer struct {
	mu      sync.Mutex
	notices []string
}

func (m *stubMailer) SendMailToNotifyUser(to, subject, body string) error {
	return nil
}

func (m *stubMailer) SendGalleryDeletedNotice(to, galleryTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, to)
	return nil
}

func (m *stubMailer) Configured() bool { return true }

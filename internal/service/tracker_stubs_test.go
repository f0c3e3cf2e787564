package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

type trackerWriterStub struct {
	mu       sync.Mutex
	payloads []string
	err      error
	delay    time.Duration

	active  atomic.Int32
	overlap atomic.Bool
}

func (s *trackerWriterStub) UpdateTrackerField(ctx context.Context, projectID string, kind models.TrackerKind, payload string) error {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *trackerWriterStub) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *trackerWriterStub) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

func (s *trackerWriterStub) last() string {
	calls := s.calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

type snapshotStoreStub struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

func newSnapshotStoreStub() *snapshotStoreStub {
	return &snapshotStoreStub{items: map[string]string{}}
}

func (s *snapshotStoreStub) Save(ctx context.Context, kind models.TrackerKind, projectID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items[kind.SnapshotKey(projectID)] = payload
	return nil
}

func (s *snapshotStoreStub) Load(ctx context.Context, kind models.TrackerKind, projectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	payload, ok := s.items[kind.SnapshotKey(projectID)]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	return payload, nil
}

func (s *snapshotStoreStub) get(kind models.TrackerKind, projectID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[kind.SnapshotKey(projectID)]
}

func testActor(id string, role models.UserRole) models.Actor {
	return models.Actor{ID: id, Name: "User " + id, Email: id + "@example.com", Role: role}
}

func seedPartition() models.YearPartition {
	return models.YearPartition{
		"2025": {
			{
				ID:   "sec-1",
				Name: "Payroll",
				Documents: []models.Document{
					{ID: "doc-1", Name: "Payslips"},
					{ID: "doc-2", Name: "Timesheets"},
				},
			},
			{ID: "sec-2", Name: "Tax", Documents: []models.Document{{ID: "doc-3", Name: "Returns"}}},
		},
		"2024": {
			{ID: "sec-1", Name: "Payroll", Documents: []models.Document{{ID: "doc-1", Name: "Payslips"}}},
		},
	}
}

package services

import (
	"context"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	store   Pinger
	timeout time.Duration
}

func NewHealthService(store Pinger) *HealthService {
	return &HealthService{store: store, timeout: 2 * time.Second}
}

// Get reports whether the store answers a ping.
func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.store.Ping(ctx)
}

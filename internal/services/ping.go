package services

import (
	"context"
	"fmt"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingService проверяет доступность хранилища документов и кеша.
type PingService struct {
	conns []Pinger
}

func NewPingService(conns ...Pinger) *PingService {
	return &PingService{conns: conns}
}

func (s *PingService) CheckConnection(ctx context.Context) error {
	for _, conn := range s.conns {
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("ping error: %w", err)
		}
	}
	return nil
}

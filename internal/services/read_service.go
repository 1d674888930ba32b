package services

import (
	"context"
	"fmt"
	"log"
)

// ReadStateServiceImpl implements ReadStateService against a ThreadRepository.
// It performs no optimistic local flip: callers reconcile by revalidating the
// thread cache after a successful mutation, so a failure can never leave the
// view inconsistent with the server.
type ReadStateServiceImpl struct {
	repo   ThreadRepository
	logger *log.Logger
}

// NewReadStateService creates a new read-state service.
func NewReadStateService(repo ThreadRepository) *ReadStateServiceImpl {
	return &ReadStateServiceImpl{repo: repo}
}

// SetLogger sets the logger for debug output.
func (s *ReadStateServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// MarkRead marks the given rows as read.
func (s *ReadStateServiceImpl) MarkRead(ctx context.Context, ids []string) error {
	return s.setState(ctx, ids, false)
}

// MarkUnread marks the given rows as unread.
func (s *ReadStateServiceImpl) MarkUnread(ctx context.Context, ids []string) error {
	return s.setState(ctx, ids, true)
}

func (s *ReadStateServiceImpl) setState(ctx context.Context, ids []string, unread bool) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no ids provided", ErrInvalidInput)
	}
	if s.repo == nil {
		return fmt.Errorf("%w: repository not initialized", ErrServiceUnavailable)
	}
	if err := s.repo.SetReadState(ctx, ids, unread); err != nil {
		if s.logger != nil {
			s.logger.Printf("set read state (unread=%t) for %d id(s): %v", unread, len(ids), err)
		}
		return fmt.Errorf("%w: %v", ErrMutationFailed, err)
	}
	return nil
}

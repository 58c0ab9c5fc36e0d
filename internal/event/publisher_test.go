package event

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/model"
)

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewEventPublisher("", "examprep.progress", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}
	if p.Enabled() {
		t.Fatal("publisher without URL must be disabled")
	}
	if err := p.PublishProgressRecorded(context.Background(), model.ProgressEvent{UserID: 1}); err != nil {
		t.Errorf("disabled publish should succeed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("disabled close should succeed, got %v", err)
	}
}

var _ Publisher = (*EventPublisher)(nil)

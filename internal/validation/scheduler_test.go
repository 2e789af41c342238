package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
	"github.com/stretchr/testify/assert"
)

type countingUseCase struct {
	UseCase
	passes chan struct{}
}

func (u *countingUseCase) RunAll(context.Context) (*dto.PassSummary, error) {
	u.passes <- struct{}{}
	return nil, errors.New("store offline")
}

func TestSchedulerRepeatsPasses(t *testing.T) {
	uc := &countingUseCase{passes: make(chan struct{}, 8)}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		NewScheduler(uc, 10*time.Millisecond, logger.NewNop()).Start(ctx)
		close(stopped)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-uc.passes:
		case <-time.After(5 * time.Second):
			t.Fatalf("pass %d did not run", i+1)
		}
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Error(t, ctx.Err())
}

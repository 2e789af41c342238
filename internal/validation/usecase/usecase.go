package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
	"go.uber.org/zap"
)

type validationUseCase struct {
	registry *validation.Registry
	repo     validation.Repository
	tx       catalogue.TxManager
	logger   logger.ZapLogger
	now      func() time.Time
}

type Option func(*validationUseCase)

// WithClock replaces time.Now for last_seen stamps.
func WithClock(now func() time.Time) Option {
	return func(uc *validationUseCase) { uc.now = now }
}

func NewValidationUseCase(registry *validation.Registry, repo validation.Repository, tx catalogue.TxManager, log logger.ZapLogger, opts ...Option) validation.UseCase {
	uc := &validationUseCase{
		registry: registry,
		repo:     repo,
		tx:       tx,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *validationUseCase) RunAll(ctx context.Context) (*dto.PassSummary, error) {
	start := time.Now()
	summary := &dto.PassSummary{StartedAt: uc.now()}
	var errs []error

	for _, def := range uc.registry.Definitions() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := uc.runOne(ctx, def)
		if err != nil {
			errs = append(errs, fmt.Errorf("store %s.%s logs: %w", def.App, def.Model, err))
		}
		summary.Runners = append(summary.Runners, result)
	}

	summary.FinishedAt = uc.now()
	validation.PassDuration.Observe(time.Since(start).Seconds())
	uc.logger.Info("validation pass finished",
		zap.Int("runners", len(summary.Runners)), zap.Duration("took", time.Since(start)))
	return summary, errors.Join(errs...)
}

// runOne validates one runner and stores its logs. A runner whose data cannot
// be loaded is reported in the result and leaves its previous logs in place;
// only storage failures are returned.
func (uc *validationUseCase) runOne(ctx context.Context, def validation.Definition) (dto.RunnerResult, error) {
	result := dto.RunnerResult{App: def.App, Model: def.Model}
	log := uc.logger.With(zap.String("app", def.App), zap.String("model", def.Model))

	validators, err := def.Load(ctx)
	if err != nil {
		validation.RunnerErrors.WithLabelValues(def.App, def.Model).Inc()
		log.Error("validation runner failed to load", zap.Error(err))
		result.Error = err.Error()
		return result, nil
	}
	runner := validation.NewRunner(def.App, def.Model, validators...)
	runner.Run(ctx, log)
	failures := runner.Failures()

	seenAt := uc.now()
	rows := make([]model.ModelValidationLog, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, model.ModelValidationLog{
			App:             def.App,
			Model:           def.Model,
			ErrorLevel:      int(f.Level),
			ObjectValidator: f.Validator,
			ValidationCheck: f.Check,
			ErrorMessage:    f.Message,
			LastSeen:        seenAt,
		})
	}

	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := uc.repo.LockRunner(ctx, def.App, def.Model)
		if err != nil {
			return err
		}
		if !ok {
			result.Skipped = true
			return nil
		}
		return uc.repo.ReplaceLogs(ctx, def.App, def.Model, rows, seenAt)
	})
	if err != nil {
		validation.RunnerErrors.WithLabelValues(def.App, def.Model).Inc()
		log.Error("failed to store validation logs", zap.Error(err))
		result.Error = err.Error()
		return result, err
	}
	if result.Skipped {
		log.Warn("validation runner skipped, another pass holds its lock")
		return result, nil
	}

	result.Failures = len(failures)
	for _, l := range validation.Levels() {
		validation.Failures.WithLabelValues(def.App, def.Model, l.String()).Set(float64(len(runner.ErrorMessages(l))))
	}
	if len(failures) > 0 {
		log.Info("validation runner logged failures", zap.Int("failures", len(failures)))
	}
	return result, nil
}

func countLevel(c dto.Counts, level int) {
	c[validation.Level(level).String()]++
}

func emptyCounts() dto.Counts {
	c := dto.Counts{}
	for _, l := range validation.Levels() {
		c[l.String()] = 0
	}
	return c
}

func (uc *validationUseCase) Overview(ctx context.Context, minLevel validation.Level) (*dto.Overview, error) {
	logs, err := uc.repo.ListLogs(ctx, &dto.LogFilter{MinLevel: int(minLevel)})
	if err != nil {
		return nil, err
	}
	view := &dto.Overview{MinLevel: minLevel.String()}
	for _, app := range uc.registry.Apps() {
		view.Apps = append(view.Apps, uc.appSummary(app, logs))
	}
	return view, nil
}

func (uc *validationUseCase) App(ctx context.Context, app string, minLevel validation.Level) (*dto.AppView, error) {
	if !uc.knownApp(app) {
		return nil, apperr.Newf(apperr.NotFound, "validation.App", "no validation runners for app %q", app)
	}
	logs, err := uc.repo.ListLogs(ctx, &dto.LogFilter{App: app, MinLevel: int(minLevel)})
	if err != nil {
		return nil, err
	}
	return &dto.AppView{MinLevel: minLevel.String(), AppSummary: uc.appSummary(app, logs)}, nil
}

func (uc *validationUseCase) knownApp(app string) bool {
	for _, a := range uc.registry.Apps() {
		if a == app {
			return true
		}
	}
	return false
}

// appSummary counts logs per model of app. Registered models without logs
// are listed with zero counts.
func (uc *validationUseCase) appSummary(app string, logs []model.ModelValidationLog) dto.AppSummary {
	summary := dto.AppSummary{App: app, Counts: emptyCounts()}
	index := map[string]int{}
	for _, def := range uc.registry.Definitions() {
		if def.App != app {
			continue
		}
		index[def.Model] = len(summary.Models)
		summary.Models = append(summary.Models, dto.ModelSummary{App: app, Model: def.Model, Counts: emptyCounts()})
	}
	for _, l := range logs {
		if l.App != app {
			continue
		}
		i, ok := index[l.Model]
		if !ok {
			index[l.Model] = len(summary.Models)
			i = index[l.Model]
			summary.Models = append(summary.Models, dto.ModelSummary{App: app, Model: l.Model, Counts: emptyCounts()})
		}
		countLevel(summary.Models[i].Counts, l.ErrorLevel)
		summary.Models[i].Total++
		countLevel(summary.Counts, l.ErrorLevel)
		summary.Total++
	}
	return summary
}

func (uc *validationUseCase) Model(ctx context.Context, app, modelName string, minLevel validation.Level) (*dto.ModelView, error) {
	if _, ok := uc.registry.Lookup(app, modelName); !ok {
		return nil, apperr.Newf(apperr.NotFound, "validation.Model", "no validation runner for %s.%s", app, modelName)
	}
	logs, err := uc.repo.ListLogs(ctx, &dto.LogFilter{App: app, Model: modelName, MinLevel: int(minLevel)})
	if err != nil {
		return nil, err
	}

	view := &dto.ModelView{App: app, Model: modelName, MinLevel: minLevel.String(), Counts: emptyCounts()}
	for _, l := range logs {
		n := len(view.Validators)
		if n == 0 || view.Validators[n-1].ObjectValidator != l.ObjectValidator {
			view.Validators = append(view.Validators, dto.ValidatorGroup{ObjectValidator: l.ObjectValidator, Counts: emptyCounts()})
			n++
		}
		group := &view.Validators[n-1]
		countLevel(group.Counts, l.ErrorLevel)
		countLevel(view.Counts, l.ErrorLevel)
		group.Logs = append(group.Logs, dto.LogEntry{
			ID:       l.ID,
			Level:    validation.Level(l.ErrorLevel).String(),
			Check:    l.ValidationCheck,
			Message:  l.ErrorMessage,
			LastSeen: l.LastSeen,
		})
	}
	return view, nil
}

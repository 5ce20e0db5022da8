package main

import (
	"context"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/persistence"
)

type caseStoreAdapter struct {
	repo persistence.CaseRepository
}

func newCaseStoreAdapter(repo persistence.CaseRepository) *caseStoreAdapter {
	return &caseStoreAdapter{repo: repo}
}

func (a *caseStoreAdapter) ListCases(ctx context.Context) ([]application.Case, error) {
	models, err := a.repo.ListCases(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	cases := make([]application.Case, 0, len(models))
	for _, model := range models {
		cases = append(cases, toApplicationCase(model))
	}
	return cases, nil
}

func (a *caseStoreAdapter) GetCase(ctx context.Context, id string) (application.Case, error) {
	stored, err := a.repo.GetCase(ctx, id)
	if err != nil {
		return application.Case{}, err
	}
	return toApplicationCase(stored), nil
}

func (a *caseStoreAdapter) PutCase(ctx context.Context, c application.Case) error {
	return a.repo.PutCase(ctx, toPersistenceCase(c))
}

func (a *caseStoreAdapter) DeleteCase(ctx context.Context, id string) error {
	return a.repo.DeleteCase(ctx, id)
}

func toApplicationCase(model persistence.Case) application.Case {
	return application.Case{
		ID:                  model.ID,
		OwnerID:             model.OwnerID,
		Name:                model.Name,
		DurationMinutes:     model.DurationMinutes,
		BufferMinutes:       model.BufferMinutes,
		MaxSlots:            model.MaxSlots,
		Members:             append([]string(nil), model.Members...),
		Status:              application.CaseStatus(model.Status),
		ProvisionalEventIDs: append([]string(nil), model.ProvisionalEventIDs...),
		ConfirmedEventID:    model.ConfirmedEventID,
		CreatedAt:           model.CreatedAt,
	}
}

func toPersistenceCase(c application.Case) persistence.Case {
	return persistence.Case{
		ID:                  c.ID,
		OwnerID:             c.OwnerID,
		Name:                c.Name,
		DurationMinutes:     c.DurationMinutes,
		BufferMinutes:       c.BufferMinutes,
		MaxSlots:            c.MaxSlots,
		Status:              string(c.Status),
		Members:             append([]string(nil), c.Members...),
		ProvisionalEventIDs: append([]string(nil), c.ProvisionalEventIDs...),
		ConfirmedEventID:    c.ConfirmedEventID,
		CreatedAt:           c.CreatedAt,
	}
}

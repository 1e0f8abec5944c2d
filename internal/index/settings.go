package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/mfenderov/pageocr/pkg/models"
)

const preferencesKey = "preferences"

type preferences struct {
	ExcludeImages bool // zero value keeps images on by default
}

// IncludeImages returns the image inclusion preference. Defaults to true.
func (x *Index) IncludeImages(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var p preferences
	if err := x.store.Get(preferencesKey, &p); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to get preferences: %w", err)
	}
	return !p.ExcludeImages, nil
}

// SetIncludeImages stores the image inclusion preference.
func (x *Index) SetIncludeImages(ctx context.Context, include bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := x.store.Upsert(preferencesKey, &preferences{ExcludeImages: !include}); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// SetPrompt stores a pending prompt, replacing any prompt for the same
// page context.
func (x *Index) SetPrompt(ctx context.Context, p *models.PendingPrompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := x.store.Upsert(p.PageContext, p); err != nil {
		return fmt.Errorf("failed to save prompt: %w", err)
	}
	return nil
}

// Prompt returns the pending prompt for pageContext, or nil.
func (x *Index) Prompt(ctx context.Context, pageContext string) (*models.PendingPrompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p models.PendingPrompt
	if err := x.store.Get(pageContext, &p); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &p, nil
}

// ClearPrompt removes the prompt for pageContext, or every prompt when
// pageContext is empty.
func (x *Index) ClearPrompt(ctx context.Context, pageContext string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if pageContext == "" {
		err = x.store.DeleteMatching(&models.PendingPrompt{}, badgerhold.Where("PageContext").Ne(""))
	} else {
		err = x.store.Delete(pageContext, &models.PendingPrompt{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to clear prompt: %w", err)
	}
	return nil
}

package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dapp/internal/domain"
)

var (
	ErrNoUser         = errors.New("no current user")
	ErrNoProfile      = errors.New("profile is incomplete")
	ErrNotOwner       = errors.New("not the owner")
	ErrNotWhitelisted = errors.New("not whitelisted")
	// ErrNotEditable is returned for entities that exist but cannot be
	// changed in their current state.
	ErrNotEditable = errors.New("not editable")
	ErrLoad        = errors.New("load failed")
	ErrSave        = errors.New("save failed")
)

// ValidationError lists form fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[n]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// FieldErrors returns the per-field messages of err, or nil.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// Noun is the user-facing name of an entity kind.
func Noun(kind domain.EntityKind) string {
	switch kind {
	case domain.KindDAC:
		return "Fund"
	case domain.KindCampaign:
		return "Campaign"
	case domain.KindMilestone:
		return "Milestone"
	default:
		return "item"
	}
}

// Message returns the text shown to the user for err.
func Message(kind domain.EntityKind, err error) string {
	noun := Noun(kind)
	switch {
	case errors.Is(err, ErrNotWhitelisted):
		return fmt.Sprintf("You are not whitelisted to manage a %s.", noun)
	case errors.Is(err, ErrNotEditable):
		return fmt.Sprintf("This %s can not be edited right now.", noun)
	case errors.Is(err, ErrLoad):
		return fmt.Sprintf("Sadly we were unable to load the %s. Please refresh the page and try again.", noun)
	case errors.Is(err, ErrSave):
		return fmt.Sprintf("Something went wrong while saving your %s. Please try again.", noun)
	case FieldErrors(err) != nil:
		return "Please correct the highlighted fields."
	default:
		return fmt.Sprintf("There has been a problem loading the %s. Please refresh the page and try again.", noun)
	}
}

// SavedMessage is the success notification for kind.
func SavedMessage(kind domain.EntityKind) string {
	return fmt.Sprintf("Your %s has been saved", Noun(kind))
}

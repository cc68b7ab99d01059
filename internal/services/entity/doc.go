// Package entity implements the create and edit flows for DACs, campaigns
// and milestones: who may edit what, form validation, and saving through
// the DAC service.
//
// Callers turn the returned errors into navigation and notifications:
// ErrNoUser sends the visitor home, ErrNoProfile to the profile page,
// ErrNotOwner back to where they came from, and everything else into an
// error toast while the form keeps its input.
package entity

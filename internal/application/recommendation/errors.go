package recommendation

import (
	"fmt"

	"github.com/mealprep/recommender/internal/domain/mealplan"
	apperrors "github.com/mealprep/recommender/pkg/errors"
)

func collaboratorUnavailable(provider, reason string, cause error) *apperrors.AppError {
	return apperrors.NewCollaboratorUnavailableError(provider, reason, withSentinel(mealplan.ErrCollaboratorUnavailable, cause))
}

func noUsableCandidates(details string) *apperrors.AppError {
	return apperrors.NewNoUsableCandidatesError(details, mealplan.ErrNoUsableCandidates)
}

// withSentinel chains sentinel in front of cause so errors.Is matches both
func withSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

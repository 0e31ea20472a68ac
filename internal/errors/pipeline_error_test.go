package errors_test

import (
	"errors"
	"fmt"
	"testing"

	perrors "shotclassifier/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorKinds(t *testing.T) {
	t.Run("sentinels match by kind", func(t *testing.T) {
		err := perrors.NewColumnNotFoundError("Clean", "game_date")
		assert.ErrorIs(t, err, perrors.ErrInput)
		assert.NotErrorIs(t, err, perrors.ErrConfiguration)

		cfg := perrors.NewConfigError("Split", "no labeled rows")
		assert.ErrorIs(t, cfg, perrors.ErrConfiguration)
		assert.NotErrorIs(t, cfg, perrors.ErrModelFit)
	})

	t.Run("wrapped errors still match", func(t *testing.T) {
		err := fmt.Errorf("section tree: %w", perrors.NewModelFitError("Fit", errors.New("singular")))
		assert.ErrorIs(t, err, perrors.ErrModelFit)

		var pe *perrors.PipelineError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, "Fit", pe.Op)
		assert.EqualError(t, pe.Cause, "singular")
	})

	t.Run("message includes column", func(t *testing.T) {
		err := perrors.NewInputError("Clean", "game_date", "unparseable date \"x\" at row 3")
		assert.Equal(t, "input error in Clean on column 'game_date': unparseable date \"x\" at row 3", err.Error())
	})

	t.Run("cause is unwrapped", func(t *testing.T) {
		cause := errors.New("EOF")
		err := perrors.WrapInput("Load", "reading csv", cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "reading csv: EOF")
	})
}

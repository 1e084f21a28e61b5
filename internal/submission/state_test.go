package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

func TestState_Lifecycle(t *testing.T) {
	s := FromView(model.SubmissionView{})
	assert.Equal(t, StatusIdle, s.Status)

	require.NoError(t, s.Begin())
	assert.ErrorIs(t, s.Begin(), ErrInFlight)

	require.NoError(t, s.Fail(map[int]string{3: "taken"}, ""))
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "taken", s.FieldErrors[3])

	require.NoError(t, s.Begin())
	assert.Nil(t, s.FieldErrors)

	require.NoError(t, s.Succeed("resp-1", true))
	assert.ErrorIs(t, s.Begin(), ErrAlreadySubmitted)

	restored := FromView(s.View())
	assert.Equal(t, StatusSuccess, restored.Status)
	assert.Equal(t, "resp-1", restored.ResponseID)
	assert.True(t, restored.Award)
}

func TestState_TransitionsRequireLoading(t *testing.T) {
	s := FromView(model.SubmissionView{})
	assert.ErrorIs(t, s.Succeed("x", false), ErrNotLoading)
	assert.ErrorIs(t, s.Fail(nil, "boom"), ErrNotLoading)

	require.NoError(t, s.Begin())
	require.NoError(t, s.Fail(nil, "network down"))
	s.Reset()
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.Message)
}

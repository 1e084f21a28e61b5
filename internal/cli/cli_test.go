package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantErr  bool
		contains []string
	}{
		{
			name:  "valid definition prints initial pages",
			files: []string{"feedback.yaml"},
			contains: []string{
				"6 questions, 3 rules, 3 categories",
				"page 1: Purchase",
				"page 3: Retail",
				"[5] Where did you buy it? (drop_down)",
			},
		},
		{
			name:    "structural problems are listed",
			files:   []string{"broken.yaml"},
			wantErr: true,
			contains: []string{
				"validation failed",
				"duplicate sequence_num 1",
				"references unknown category 2",
				"target 9 does not exist",
			},
		},
		{
			name:     "missing file",
			files:    []string{"nope.yaml"},
			wantErr:  true,
			contains: []string{"failed to read"},
		},
		{
			name:     "one bad file fails the run",
			files:    []string{"feedback.yaml", "broken.yaml"},
			wantErr:  true,
			contains: []string{"✓", "✗"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := make([]string, len(tt.files))
			for i, f := range tt.files {
				paths[i] = filepath.Join("testdata", f)
			}

			var out bytes.Buffer
			err := checkFiles(paths, &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestCheckCommand_HiddenQuestionsLeaveInitialPages(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, checkFile(filepath.Join("testdata", "feedback.yaml"), &out))

	assert.NotContains(t, out.String(), "[4]")
	assert.NotContains(t, out.String(), "[6]")
}

func TestSimulate(t *testing.T) {
	opts := &simulateOptions{
		answers: `{"1": 2, "3": [1, 3], "4": "Low light", "5": 1}`,
		payload: true,
	}

	var out bytes.Buffer
	require.NoError(t, simulate(filepath.Join("testdata", "feedback.yaml"), opts, &out))

	got := out.String()
	assert.Contains(t, got, "visible: [1 2 3 4 6]")
	assert.Contains(t, got, "cleared: [5]")
	assert.Contains(t, got, "invalid [2]: This field is required")
	assert.Contains(t, got, "page 3: Retail")
	assert.Contains(t, got, `"survey_id": "smartphone-feedback"`)
}

func TestSimulate_RejectsBadAnswers(t *testing.T) {
	path := filepath.Join("testdata", "feedback.yaml")

	err := simulate(path, &simulateOptions{answers: `{"q1": 1}`}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid answer key")

	err = simulate(path, &simulateOptions{answers: `[1, 2]`}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to parse answers")
}

func TestRootCommand_RunsSimulate(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"simulate", filepath.Join("testdata", "feedback.yaml"), "--answers", `{"3": [2]}`})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "visible: [1 2 3 5]")
}

type memoryRepo struct {
	surveys map[string]*model.Survey
}

func (r *memoryRepo) Create(_ context.Context, s *model.Survey) error {
	r.surveys[s.ID] = s
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*model.Survey, error) {
	return r.surveys[id], nil
}

func (r *memoryRepo) ListByHost(context.Context, string) ([]*model.SurveySummary, error) {
	return nil, nil
}

func (r *memoryRepo) Update(_ context.Context, s *model.Survey) (bool, error) {
	existing, ok := r.surveys[s.ID]
	if !ok || existing.HostID != s.HostID {
		return false, nil
	}
	r.surveys[s.ID] = s
	return true, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (bool, error) {
	_, ok := r.surveys[id]
	delete(r.surveys, id)
	return ok, nil
}

func TestSeed(t *testing.T) {
	repo := &memoryRepo{surveys: map[string]*model.Survey{}}
	path := filepath.Join("testdata", "feedback.yaml")
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, seed(ctx, repo, "host_a", []string{path}, &out))
	assert.Contains(t, out.String(), "created survey smartphone-feedback")
	assert.Equal(t, "host_a", repo.surveys["smartphone-feedback"].HostID)

	out.Reset()
	require.NoError(t, seed(ctx, repo, "host_a", []string{path}, &out))
	assert.Contains(t, out.String(), "updated survey smartphone-feedback")

	err := seed(ctx, repo, "host_b", []string{path}, &out)
	assert.ErrorContains(t, err, "owned by host_a")

	err = seed(ctx, repo, "host_a", []string{filepath.Join("testdata", "broken.yaml")}, &out)
	assert.Error(t, err)
	assert.NotContains(t, repo.surveys, "broken")
}

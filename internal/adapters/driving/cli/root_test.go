package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/config"
	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/core/ports/driving"
)

// fakeService records calls and replays a fixed answer.
type fakeService struct {
	reporter   driven.ProgressReporter
	prepareErr error
	askErr     error
	ran        []string
	asked      []string
	closed     bool
}

func (f *fakeService) Prepare(_ context.Context) (domain.IndexState, error) {
	if f.prepareErr != nil {
		return domain.IndexStateNeedsIndex, f.prepareErr
	}
	f.reporter.Progress("Loaded existing vector store from %s (%d chunk(s))", "test.db", 3)
	return domain.IndexStateIndexed, nil
}

func (f *fakeService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	f.asked = append(f.asked, question)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &domain.Answer{Question: question, Text: "42"}, nil
}

func (f *fakeService) Run(ctx context.Context, queries []string) error {
	if _, err := f.Prepare(ctx); err != nil {
		return err
	}
	for _, q := range queries {
		f.ran = append(f.ran, q)
		f.reporter.Question(q)
		a, err := f.Ask(ctx, q)
		if err != nil {
			f.reporter.Failure(q, err)
			continue
		}
		f.reporter.Answer(a)
	}
	return nil
}

func (f *fakeService) State() domain.IndexState { return domain.IndexStateIndexed }

func (f *fakeService) Close() error {
	f.closed = true
	return nil
}

// withFakes swaps the config loader and service factory for the test.
func withFakes(t *testing.T, cfg config.Config, cfgErr error, svc *fakeService, svcErr error) {
	t.Helper()
	origLoad, origNew := loadConfig, newService
	t.Cleanup(func() {
		loadConfig, newService = origLoad, origNew
		rootCmd.SetArgs(nil)
	})

	loadConfig = func() (config.Config, error) { return cfg, cfgErr }
	newService = func(_ context.Context, _ config.Config, r driven.ProgressReporter) (driving.RAGService, func(), error) {
		if svcErr != nil {
			return nil, nil, svcErr
		}
		svc.reporter = r
		return svc, func() { _ = svc.Close() }, nil
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_RunsConfiguredQueries(t *testing.T) {
	cfg := config.Default()
	cfg.Queries = []string{"first?", "second?"}
	svc := &fakeService{}
	withFakes(t, cfg, nil, svc, nil)

	out, err := execute(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"first?", "second?"}, svc.ran)
	assert.True(t, svc.closed)
	assert.Contains(t, out, "Loaded existing vector store from test.db (3 chunk(s))")
	assert.Contains(t, out, "Question: first?")
	assert.Contains(t, out, "Question: second?")
	assert.Contains(t, out, "Answer: 42")
}

func TestRootCmd_ReportsFailedQueryAndContinues(t *testing.T) {
	cfg := config.Default()
	cfg.Queries = []string{"q1", "q2"}
	svc := &fakeService{askErr: errors.New("model offline")}
	withFakes(t, cfg, nil, svc, nil)

	out, err := execute(t)

	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, svc.asked)
	assert.Contains(t, out, `Failed to answer "q1": model offline`)
	assert.Contains(t, out, `Failed to answer "q2": model offline`)
}

func TestRootCmd_ConfigError(t *testing.T) {
	withFakes(t, config.Config{}, errors.New("invalid configuration"), &fakeService{}, nil)

	_, err := execute(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCmd_SetupError(t *testing.T) {
	withFakes(t, config.Default(), nil, nil, domain.ErrLLMUnavailable)

	_, err := execute(t)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRootCmd_RejectsArguments(t *testing.T) {
	withFakes(t, config.Default(), nil, &fakeService{}, nil)

	_, err := execute(t, "unexpected")

	assert.Error(t, err)
}

func TestAskCmd_AnswersJoinedArgs(t *testing.T) {
	svc := &fakeService{}
	withFakes(t, config.Default(), nil, svc, nil)

	out, err := execute(t, "ask", "what", "is", "B?")

	require.NoError(t, err)
	assert.Equal(t, []string{"what is B?"}, svc.asked)
	assert.Contains(t, out, "Question: what is B?")
	assert.Contains(t, out, "Answer: 42")
	assert.True(t, svc.closed)
}

func TestAskCmd_PrepareError(t *testing.T) {
	svc := &fakeService{prepareErr: domain.ErrEmptyCorpus}
	withFakes(t, config.Default(), nil, svc, nil)

	_, err := execute(t, "ask", "anything")

	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Empty(t, svc.asked)
}

func TestAskCmd_AskError(t *testing.T) {
	svc := &fakeService{askErr: domain.ErrNotIndexed}
	withFakes(t, config.Default(), nil, svc, nil)

	_, err := execute(t, "ask", "anything")

	assert.ErrorIs(t, err, domain.ErrNotIndexed)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	withFakes(t, config.Default(), nil, &fakeService{}, nil)

	_, err := execute(t, "ask")

	assert.Error(t, err)
}

package collaborator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockRoles struct {
	mock.Mock
}

func (m *mockRoles) ExtractIntent(ctx context.Context, text string) (*Intent, error) {
	args := m.Called(ctx, text)
	intent, _ := args.Get(0).(*Intent)
	return intent, args.Error(1)
}

func (m *mockRoles) DetectEntities(ctx context.Context, text string, existing []string) (*Discovery, error) {
	args := m.Called(ctx, text, existing)
	d, _ := args.Get(0).(*Discovery)
	return d, args.Error(1)
}

func (m *mockRoles) Formulate(ctx context.Context, req blueprint.MissingRequirement, entity *EntityContext) (string, error) {
	args := m.Called(ctx, req, entity)
	return args.String(0), args.Error(1)
}

func (m *mockRoles) FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *EntityContext) (string, error) {
	args := m.Called(ctx, reqs, entity)
	return args.String(0), args.Error(1)
}

func (m *mockRoles) ParseAnswer(ctx context.Context, text string, req blueprint.MissingRequirement, entity *EntityContext) (*Answer, error) {
	args := m.Called(ctx, text, req, entity)
	a, _ := args.Get(0).(*Answer)
	return a, args.Error(1)
}

func (m *mockRoles) ParseCompound(ctx context.Context, text string, reqs []blueprint.MissingRequirement, entity *EntityContext) ([]Answer, error) {
	args := m.Called(ctx, text, reqs, entity)
	a, _ := args.Get(0).([]Answer)
	return a, args.Error(1)
}

func (m *mockRoles) set() Set {
	return Set{Intents: m, Detector: m, Questions: m, Answers: m}
}

var (
	errBoom  = errors.New("service unavailable")
	workReq  = blueprint.MissingRequirement{EntityID: "ns_e1", Path: "values.workspace", Reason: "Required value 'values.workspace' is missing"}
	applyReq = blueprint.MissingRequirement{EntityID: "ns_e1", Path: "steps.apply", Reason: "Required step 'apply' is missing"}
)

func newObservedGuard(set Set) (*Guard, *observer.ObservedLogs, *monitoring.Metrics) {
	core, logs := observer.New(zapcore.WarnLevel)
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	return NewGuard(set, GuardOptions{Logger: zap.New(core), Metrics: metrics}), logs, metrics
}

func TestFallbackQuestion(t *testing.T) {
	assert.Equal(t,
		"Please provide value for 'values.workspace' in entity 'ns_e1'. Reason: Required value 'values.workspace' is missing",
		FallbackQuestion(workReq))
	assert.Equal(t, FallbackQuestion(workReq)+"\n"+FallbackQuestion(applyReq),
		FallbackQuestions([]blueprint.MissingRequirement{workReq, applyReq}))
}

func TestFallbackAnswer(t *testing.T) {
	tests := []struct {
		name string
		text string
		req  blueprint.MissingRequirement
		want any
	}{
		{name: "plain", text: " ws ", req: workReq, want: "ws"},
		{name: "field label", text: "workspace: dev-ws", req: workReq, want: "dev-ws"},
		{name: "path label", text: "values.workspace: dev-ws", req: workReq, want: "dev-ws"},
		{name: "url kept whole", text: "https://git.example.com/team", req: workReq, want: "https://git.example.com/team"},
		{name: "other label kept", text: "region: eu-west-1", req: workReq, want: "region: eu-west-1"},
		{name: "step", text: "RunIaCM", req: applyReq, want: map[string]any{"pipeline": "RunIaCM", "variables": []any{}}},
		{
			name: "variables",
			text: "nothing",
			req:  blueprint.MissingRequirement{EntityID: "ns_e1", Path: "steps.apply.variables"},
			want: []any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FallbackAnswer(tt.text, tt.req)
			assert.Equal(t, tt.req.Path, a.Path)
			assert.Equal(t, tt.want, a.Value)
			assert.Equal(t, blueprint.Literal, a.Classification)
		})
	}
}

func TestPathPredicates(t *testing.T) {
	assert.True(t, IsStepPath("steps.apply"))
	assert.False(t, IsStepPath("steps.apply.pipeline"))
	assert.False(t, IsStepPath("steps."))
	assert.True(t, IsVariablesPath("steps.apply.variables"))
	assert.False(t, IsVariablesPath("steps.apply.variables.name"))
	assert.True(t, IsIdentifierPath("values.environment.identifier"))
	assert.True(t, IsIdentifierPath("steps.create.template"))
	assert.False(t, IsIdentifierPath("config.replicas"))
}

func TestGuardPassesThroughSuccess(t *testing.T) {
	roles := &mockRoles{}
	ctx := context.Background()
	intent := &Intent{Entities: []EntitySpec{{BackendType: "HarnessIACM"}}}
	roles.On("ExtractIntent", mock.Anything, "make a namespace").Return(intent, nil)
	roles.On("FormulateBatch", mock.Anything, []blueprint.MissingRequirement{workReq}, (*EntityContext)(nil)).
		Return("<b>Which workspace</b> &amp; team?", nil)
	roles.On("ParseAnswer", mock.Anything, "ws", workReq, (*EntityContext)(nil)).
		Return(&Answer{Value: "ws"}, nil)

	g, logs, metrics := newObservedGuard(roles.set())

	assert.Same(t, intent, g.ExtractIntent(ctx, "make a namespace"))
	assert.Equal(t, "Which workspace & team?", g.FormulateBatch(ctx, []blueprint.MissingRequirement{workReq}, nil))

	a := g.ParseAnswer(ctx, "ws", workReq, nil)
	assert.Equal(t, "values.workspace", a.Path, "path is filled from the requirement")
	assert.Equal(t, "ws", a.Value)

	assert.Zero(t, logs.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorCalls.WithLabelValues(RoleIntents, "success")))
	roles.AssertExpectations(t)
}

func TestGuardFallsBackOnError(t *testing.T) {
	roles := &mockRoles{}
	ctx := context.Background()
	roles.On("ExtractIntent", mock.Anything, mock.Anything).Return(nil, errBoom)
	roles.On("DetectEntities", mock.Anything, mock.Anything, mock.Anything).Return(nil, errBoom)
	roles.On("Formulate", mock.Anything, mock.Anything, mock.Anything).Return("", errBoom)
	roles.On("FormulateBatch", mock.Anything, mock.Anything, mock.Anything).Return("", errBoom)
	roles.On("ParseAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errBoom)
	roles.On("ParseCompound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errBoom)

	g, logs, metrics := newObservedGuard(roles.set())
	reqs := []blueprint.MissingRequirement{workReq, applyReq}

	intent := g.ExtractIntent(ctx, "anything")
	require.NotNil(t, intent)
	assert.Empty(t, intent.Entities)

	d := g.DetectEntities(ctx, "anything", nil)
	require.NotNil(t, d)
	assert.Empty(t, d.NewEntities)

	assert.Equal(t, FallbackQuestion(workReq), g.Formulate(ctx, workReq, nil))
	assert.Equal(t, FallbackQuestions(reqs), g.FormulateBatch(ctx, reqs, nil))
	assert.Equal(t, "ws", g.ParseAnswer(ctx, "ws", workReq, nil).Value)
	assert.Nil(t, g.ParseCompound(ctx, "ws", reqs, nil))

	assert.Equal(t, 6, logs.FilterMessage("collaborator call failed, using fallback").Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues(RoleQuestions, "error")))
}

func TestGuardWithoutCollaborators(t *testing.T) {
	g := NewGuard(Set{}, GuardOptions{})
	ctx := context.Background()

	assert.Empty(t, g.ExtractIntent(ctx, "x").Entities)
	assert.Equal(t, FallbackQuestion(workReq), g.Formulate(ctx, workReq, nil))
	assert.Equal(t, "", g.FormulateBatch(ctx, nil, nil))
	assert.Nil(t, g.ParseCompound(ctx, "x", nil, nil))
	assert.Equal(t, map[string]any{"pipeline": "RunIaCM", "variables": []any{}}, g.ParseAnswer(ctx, "RunIaCM", applyReq, nil).Value)
}

func TestGuardBlankQuestionFallsBack(t *testing.T) {
	roles := &mockRoles{}
	roles.On("Formulate", mock.Anything, mock.Anything, mock.Anything).Return("<script>alert(1)</script>", nil)

	g := NewGuard(roles.set(), GuardOptions{})
	assert.Equal(t, FallbackQuestion(workReq), g.Formulate(context.Background(), workReq, nil))
}

func TestGuardTimeout(t *testing.T) {
	roles := &mockRoles{}
	roles.On("ExtractIntent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	g := NewGuard(roles.set(), GuardOptions{Metrics: metrics, Timeout: 10 * time.Millisecond})

	assert.Empty(t, g.ExtractIntent(context.Background(), "slow").Entities)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollaboratorFailures.WithLabelValues(RoleIntents, "timeout")))
}

func TestGuardDropsPathlessCompoundAnswers(t *testing.T) {
	roles := &mockRoles{}
	roles.On("ParseCompound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]Answer{{Value: "lost"}, {Path: "values.workspace", Value: "ws"}}, nil)

	g := NewGuard(roles.set(), GuardOptions{})
	answers := g.ParseCompound(context.Background(), "x", []blueprint.MissingRequirement{workReq}, nil)
	require.Len(t, answers, 1)
	assert.Equal(t, "values.workspace", answers[0].Path)
}

package react

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/actions"
	"github.com/rickchristie/agentloops/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func newTestAgent(model *tt.MockModel) *Agent {
	return NewAgent(model, actions.MustRegistry(actions.Calculate(), actions.AverageDogWeight()))
}

func TestAgent_Run(t *testing.T) {
	modelErr := &agentloops.TransportError{Provider: "openai", Op: "generate", Err: errors.New("502")}

	tests := []struct {
		name      string
		responses []string
		modelErr  error
		turnLimit int

		wantStatus   Status
		wantAnswer   string
		wantCalls    int
		wantErr      error
		wantSessions []agentloops.Message
	}{
		{
			name:       "no directive is the final answer",
			responses:  []string{"Answer: A toy poodle weighs 7 lbs"},
			turnLimit:  5,
			wantStatus: StatusFinal,
			wantAnswer: "Answer: A toy poodle weighs 7 lbs",
			wantCalls:  1,
			wantSessions: []agentloops.Message{
				{Role: agentloops.RoleUser, Text: "How much does a toy poodle weigh?"},
				{Role: agentloops.RoleAssistant, Text: "Answer: A toy poodle weighs 7 lbs"},
			},
		},
		{
			name: "action observation feeds the next turn",
			responses: []string{
				"Thought: I should look it up\nAction: average_dog_weight: Toy Poodle\nPAUSE",
				"Answer: 7 lbs",
			},
			turnLimit:  5,
			wantStatus: StatusFinal,
			wantAnswer: "Answer: 7 lbs",
			wantCalls:  2,
			wantSessions: []agentloops.Message{
				{Role: agentloops.RoleUser, Text: "How much does a toy poodle weigh?"},
				{
					Role: agentloops.RoleAssistant,
					Text: "Thought: I should look it up\nAction: average_dog_weight: Toy Poodle\nPAUSE",
				},
				{Role: agentloops.RoleUser, Text: "Observation: a toy poodles average weight is 7 lbs"},
				{Role: agentloops.RoleAssistant, Text: "Answer: 7 lbs"},
			},
		},
		{
			name: "turn limit without answer is incomplete",
			responses: []string{
				"Action: calculate: 1 + 1",
				"Action: calculate: 2 + 2",
				"Action: calculate: 3 + 3",
			},
			turnLimit:  2,
			wantStatus: StatusIncomplete,
			wantCalls:  2,
		},
		{
			name:       "turn limit of one still answers",
			responses:  []string{"plain answer"},
			turnLimit:  1,
			wantStatus: StatusFinal,
			wantAnswer: "plain answer",
			wantCalls:  1,
		},
		{
			name:      "unknown action is fatal",
			responses: []string{"Action: fly: to the moon"},
			turnLimit: 5,
			wantCalls: 1,
			wantErr:   agentloops.ErrUnknownAction,
		},
		{
			name:      "action error aborts the run",
			responses: []string{"Action: calculate: 1 / 0"},
			turnLimit: 5,
			wantCalls: 1,
			wantErr:   actions.ErrDivisionByZero,
		},
		{
			name:      "model error propagates",
			modelErr:  modelErr,
			turnLimit: 5,
			wantCalls: 1,
			wantErr:   modelErr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := tt.NewMockModel()
			if tc.modelErr != nil {
				model.AddError(tc.modelErr)
			}
			model.AddText(tc.responses...)

			result, err := newTestAgent(model).
				Run(context.Background(), "How much does a toy poodle weigh?", tc.turnLimit)

			assert.Equal(t, tc.wantCalls, model.CallCount())
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, result.Status)
			assert.Equal(t, tc.wantAnswer, result.Answer)
			assert.Equal(t, tc.wantCalls, result.Turns)
			if tc.wantSessions != nil {
				assert.Equal(t, tc.wantSessions, result.Session.Messages())
			}
		})
	}
}

func TestAgent_Run_ModelErrorIsTransportError(t *testing.T) {
	model := tt.NewMockModel().
		AddError(&agentloops.TransportError{Provider: "openai", Op: "generate", Err: errors.New("boom")})

	_, err := newTestAgent(model).Run(context.Background(), "task", 3)

	require.Error(t, err)
	var te *agentloops.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "openai", te.Provider)
}

func TestAgent_Run_FirstDirectiveWins(t *testing.T) {
	model := tt.NewMockModel().AddText(
		"Action: calculate: 2 * 3\nAction: average_dog_weight: Collie",
		"Answer: 6",
	)

	result, err := newTestAgent(model).Run(context.Background(), "What is 2 * 3?", 5)

	require.NoError(t, err)
	assert.Equal(t, StatusFinal, result.Status)
	require.Len(t, model.CapturedMessages, 2)
	assert.Equal(t, "Observation: 6", tt.LastText(model.CapturedMessages[1]))
}

func TestAgent_Run_CombinedDogWeights(t *testing.T) {
	model := tt.NewMockModel().AddText(
		"Thought: look up the collie\nAction: average_dog_weight: Border Collie\nPAUSE",
		"Thought: now the terrier\nAction: average_dog_weight: Scottish Terrier\nPAUSE",
		"Thought: add them\nAction: calculate: 37 + 20\nPAUSE",
		"Answer: The combined weight is 57 lbs",
	)

	result, err := newTestAgent(model).Run(
		context.Background(),
		"I have 2 dogs, a border collie and a scottish terrier. What is their combined weight?",
		5,
	)

	require.NoError(t, err)
	assert.Equal(t, StatusFinal, result.Status)
	assert.Equal(t, 4, result.Turns)
	assert.Equal(t, 8, result.Session.Len())

	wantObservations := []string{
		"Observation: a Border Collies average weight is 37 lbs",
		"Observation: Scottish Terriers average 20 lbs",
		"Observation: 57",
	}
	for i, want := range wantObservations {
		assert.Equal(t, want, tt.LastText(model.CapturedMessages[i+1]))
	}
}

func TestAgent_Run_InvalidTurnLimit(t *testing.T) {
	model := tt.NewMockModel()

	_, err := newTestAgent(model).Run(context.Background(), "task", 0)

	require.Error(t, err)
	assert.Equal(t, 0, model.CallCount())
}

func TestAgent_Run_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := tt.NewMockModel()

	_, err := newTestAgent(model).Run(ctx, "task", 3)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, model.CallCount())
}

func TestAgent_SystemPrompt(t *testing.T) {
	model := tt.NewMockModel().AddText("done")
	agent := newTestAgent(model).WithInstructions("Be concise.")

	_, err := agent.Run(context.Background(), "task", 1)
	require.NoError(t, err)

	require.Len(t, model.CapturedMessages, 1)
	messages := model.CapturedMessages[0]
	require.Len(t, messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)

	system := tt.SystemText(messages)
	assert.Contains(t, system, "Be concise.")
	assert.Contains(t, system, "average_dog_weight:")
	assert.Contains(t, system, "Returns the average weight of a dog when given the breed.")
	assert.Contains(t, system, "calculate:")
	assert.Contains(t, system, "Thought, Action, PAUSE, Observation")
}

func TestAgent_WithSystemTemplateString(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  bool
		want     string
	}{
		{
			name:     "lists action names",
			template: `Tools:{{range .Actions}} {{.Name}}{{end}}`,
			want:     "Tools: average_dog_weight calculate",
		},
		{
			name:     "invalid template",
			template: `{{.Actions`,
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agent, err := newTestAgent(tt.NewMockModel()).WithSystemTemplateString(tc.template)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			prompt, err := agent.SystemPrompt()
			require.NoError(t, err)
			assert.Equal(t, tc.want, strings.TrimSpace(prompt))
		})
	}
}

func TestAgent_InferenceParams(t *testing.T) {
	tests := []struct {
		name        string
		params      agentloops.InferenceParams
		wantOptions int
	}{
		{name: "defaults", params: agentloops.DefaultInferenceParams(), wantOptions: 2},
		{
			name:        "with max tokens",
			params:      agentloops.InferenceParams{Temperature: 0.2, TopK: 1, MaxOutputTokens: 256},
			wantOptions: 3,
		},
		{name: "temperature only", params: agentloops.InferenceParams{Temperature: 0.7}, wantOptions: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := tt.NewMockModel().AddText("done")

			_, err := newTestAgent(model).WithInferenceParams(tc.params).
				Run(context.Background(), "task", 1)

			require.NoError(t, err)
			assert.Equal(t, []int{tc.wantOptions}, model.CapturedOptions)
		})
	}
}

func TestAgent_RunSession_KeepsHistory(t *testing.T) {
	model := tt.NewMockModel().AddText("Answer: 7 lbs", "Answer: 37 lbs")
	agent := newTestAgent(model)

	session, err := agent.NewSession()
	require.NoError(t, err)

	_, err = agent.RunSession(context.Background(), session, "How much does a toy poodle weigh?", 5)
	require.NoError(t, err)
	second, err := agent.RunSession(context.Background(), session, "And a border collie?", 5)
	require.NoError(t, err)

	assert.Equal(t, "Answer: 37 lbs", second.Answer)
	assert.Equal(t, 4, session.Len())
	// system + 3 messages on the second call
	require.Len(t, model.CapturedMessages, 2)
	assert.Len(t, model.CapturedMessages[1], 4)
	assert.Equal(t, "And a border collie?", tt.LastText(model.CapturedMessages[1]))
}

func TestAgent_Execute_Stats(t *testing.T) {
	model := tt.NewMockModel().AddText(
		"Action: calculate: 4 * 7 / 3",
		"Answer: 9.33",
	)
	agent := newTestAgent(model)
	session, err := agent.NewSession()
	require.NoError(t, err)

	execCtx := agentloops.NewExecutionContext(
		context.Background(), "react", NewLoopData("What is 4 * 7 / 3?", session),
	)
	result, err := agent.Execute(execCtx, 5)

	require.NoError(t, err)
	assert.Equal(t, StatusFinal, result.Status)
	assert.Equal(t, agentloops.TerminationSuccess, execCtx.TerminationReason())
	assert.Equal(t, int64(2), execCtx.Stats().GetModelCallCount())
	assert.Equal(t, int64(1), execCtx.Stats().GetActionCallCount())
	assert.Equal(t, int64(1), execCtx.Stats().GetCounter(agentloops.KeyActionCallsFor+"calculate"))
	assert.Equal(t, int64(20), execCtx.Stats().GetTotalInputTokens())
	assert.Equal(t, "Observation: 9.333333333333334", tt.LastText(model.CapturedMessages[1]))
}

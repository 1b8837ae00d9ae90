package execution

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/aiteam-orchestrator/aiteam/internal/utils"
)

var enableCopilotTests = os.Getenv("ENABLE_COPILOT_TESTS") == "true"

func newTestCopilotEngine(client copilotClient, model string) *CopilotEngine {
	return NewCopilotEngineBuilder(model, &CopilotEngineBuilderOptions{
		NewCopilotClient: func(clientOptions *copilot.ClientOptions) copilotClient { return client },
	}).Build()
}

func TestCopilotExecute(t *testing.T) {
	ctrl := gomock.NewController(t)
	clientMock := NewMockcopilotClient(ctrl)
	sessionMock := NewMockcopilotSession(ctrl)

	unregisterCount := 0
	unregister := func() { unregisterCount++ }

	var handlers []copilot.SessionEventHandler

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), sessionConfigMatcher{t: t, model: "this-model-wins"}).Return(sessionMock, nil)
	clientMock.EXPECT().Stop()

	sessionMock.EXPECT().On(gomock.Any()).Times(2).DoAndReturn(func(h copilot.SessionEventHandler) func() {
		handlers = append(handlers, h)
		return unregister
	})
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, opts copilot.MessageOptions) (*copilot.SessionEvent, error) {
			require.Equal(t, "You are a tester.\n\nhello?", opts.Prompt)
			for _, h := range handlers {
				h(copilot.SessionEvent{Type: copilot.AssistantMessage, Data: copilot.Data{Content: utils.Ptr("FILE: a.txt\nhi\n")}})
				h(copilot.SessionEvent{Type: copilot.SessionIdle})
			}
			return &copilot.SessionEvent{}, nil
		})
	sessionMock.EXPECT().SessionID().Return("session-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	engine := newTestCopilotEngine(clientMock, "gpt-4o-mini")

	defer func() {
		err := engine.Shutdown(context.Background())
		require.NoError(t, err)
	}()

	err := engine.Initialize(ctx)
	require.NoError(t, err)

	resp, err := engine.Execute(ctx, &ExecutionRequest{
		SystemPrompt: "You are a tester.",
		Message:      "hello?",
		ModelID:      "this-model-wins",
		Timeout:      time.Minute,
	})
	require.NoError(t, err)
	require.Equal(t, "session-1", resp.SessionID)
	require.Empty(t, resp.ErrorMsg)
	require.True(t, resp.Success)
	require.True(t, resp.Usable())
	require.Equal(t, "FILE: a.txt\nhi\n", resp.FinalOutput)
	require.Equal(t, "this-model-wins", resp.ModelID)
	require.Equal(t, 2, unregisterCount)
}

func TestCopilotSendAndWaitReturnsErrorInResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	clientMock := NewMockcopilotClient(ctrl)
	sessionMock := NewMockcopilotSession(ctrl)

	const sessionErrorMsg = "session error occurred"

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), sessionConfigMatcher{t: t, model: "gpt-4o-mini"}).Return(sessionMock, nil)
	clientMock.EXPECT().Stop()

	sessionMock.EXPECT().On(gomock.Any()).Times(2).Return(func() {})
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).Return(nil, errors.New(sessionErrorMsg))
	sessionMock.EXPECT().SessionID().Return("session-1")

	engine := newTestCopilotEngine(clientMock, "gpt-4o-mini")

	defer func() {
		err := engine.Shutdown(context.Background())
		require.NoError(t, err)
	}()

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{
		Message: "message",
		Timeout: time.Minute,
	})
	require.NoError(t, err)
	require.Equal(t, sessionErrorMsg, resp.ErrorMsg)
	require.False(t, resp.Success)
	require.False(t, resp.Usable())
}

func TestCopilotStartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	clientMock := NewMockcopilotClient(ctrl)

	clientMock.EXPECT().Start(gomock.Any()).Return(errors.New("no cli"))

	engine := newTestCopilotEngine(clientMock, "")

	for range 2 {
		resp, err := engine.Execute(context.Background(), &ExecutionRequest{Message: "x", Timeout: time.Minute})
		require.ErrorContains(t, err, "copilot failed to start: no cli")
		require.Nil(t, resp)
	}
}

func TestCopilotConcurrentExecuteStartsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	clientMock := NewMockcopilotClient(ctrl)
	sessionMock := NewMockcopilotSession(ctrl)

	var starts atomic.Int32

	clientMock.EXPECT().Start(gomock.Any()).DoAndReturn(func(context.Context) error {
		starts.Add(1)
		return nil
	}).Times(1)
	clientMock.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(sessionMock, nil).Times(8)
	clientMock.EXPECT().Stop()

	sessionMock.EXPECT().On(gomock.Any()).Return(func() {}).Times(16)
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).Return(&copilot.SessionEvent{}, nil).Times(8)
	sessionMock.EXPECT().SessionID().Return("s").Times(8)

	engine := newTestCopilotEngine(clientMock, "gpt-4o-mini")

	eg := errgroup.Group{}
	for range 8 {
		eg.Go(func() error {
			_, err := engine.Execute(context.Background(), &ExecutionRequest{Message: "hi", Timeout: time.Minute})
			return err
		})
	}
	require.NoError(t, eg.Wait())
	require.Equal(t, int32(1), starts.Load())

	engine.workspacesMu.Lock()
	require.Len(t, engine.workspaces, 8)
	engine.workspacesMu.Unlock()

	require.NoError(t, engine.Shutdown(context.Background()))
	require.Empty(t, engine.workspaces)
}

func TestCopilotExecute_RequiredFields(t *testing.T) {
	engine := NewCopilotEngineBuilder("gpt-4o-mini", nil).Build()

	resp, err := engine.Execute(context.Background(), &ExecutionRequest{Timeout: 0})
	require.ErrorContains(t, err, "positive Timeout is required")
	require.Empty(t, resp)

	resp, err = engine.Execute(context.Background(), nil)
	require.Error(t, err)
	require.Nil(t, resp)
}

func TestCopilotExecuteLive(t *testing.T) {
	if !enableCopilotTests {
		t.Skip("ENABLE_COPILOT_TESTS must be set in order to run live copilot tests")
	}

	engine := NewCopilotEngineBuilder("gpt-4o-mini", nil).Build()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	resp, err := engine.Execute(ctx, &ExecutionRequest{
		Message: "Reply with a single fenced code block tagged text:hello.txt containing the word hello.",
		Timeout: 30 * time.Second,
	})
	require.NoError(t, err)
	require.True(t, resp.Usable())
	require.NoError(t, engine.Shutdown(context.Background()))
}

type sessionConfigMatcher struct {
	model string
	t     *testing.T
}

func (m sessionConfigMatcher) Matches(x any) bool {
	c, ok := x.(*copilot.SessionConfig)
	require.True(m.t, ok, "unexpected session configuration type %T", x)
	require.Equal(m.t, m.model, c.Model)
	require.NotEmpty(m.t, c.WorkingDirectory)
	require.DirExists(m.t, c.WorkingDirectory)
	require.NotNil(m.t, c.OnPermissionRequest)

	res, err := c.OnPermissionRequest(copilot.PermissionRequest{}, copilot.PermissionInvocation{})
	require.NoError(m.t, err)
	require.NotEqual(m.t, "approved", res.Kind)
	return true
}

func (m sessionConfigMatcher) String() string {
	return "session config for model " + m.model
}

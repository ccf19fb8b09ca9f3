package anthropic

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-research/internal/resilience"
)

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "tool_use", Text: ""},
			{Type: "text", Text: "world"},
		},
	}
	assert.Equal(t, "hello world", resp.Text())
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	})

	assert.Len(t, msgs, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
}

func apiError(statusCode int) *sdk.Error {
	return &sdk.Error{
		StatusCode: statusCode,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: statusCode},
	}
}

func TestClassifyAPIError(t *testing.T) {
	t.Run("retryable statuses become transient", func(t *testing.T) {
		for _, code := range []int{429, 500, 529} {
			err := classifyAPIError(apiError(code))
			assert.True(t, resilience.IsTransient(err), "status %d", code)

			var te *resilience.TransientError
			assert.True(t, errors.As(err, &te))
			assert.Equal(t, code, te.StatusCode)
		}
	})

	t.Run("client errors pass through", func(t *testing.T) {
		orig := apiError(401)
		err := classifyAPIError(orig)

		var te *resilience.TransientError
		assert.False(t, errors.As(err, &te))
		assert.Same(t, error(orig), err)
	})

	t.Run("non-API errors pass through", func(t *testing.T) {
		orig := errors.New("dial tcp: connection refused")
		assert.Same(t, orig, classifyAPIError(orig))
	})
}

package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"careguard/internal/config"
	"careguard/pkg/logger"
)

// phishingPrompt asks the model to grade one utterance for voice-phishing
// signals in the labeled format the response parser expects.
const phishingPrompt = `다음 대화 내용에서 보이스피싱 사기 시도가 있는지 분석해주세요:

대화 내용: %s

보이스피싱 의심 징후:
1. 금융기관, 경찰, 검찰 등을 사칭
2. 급하게 송금이나 이체를 요청
3. 개인정보(계좌번호, 비밀번호, OTP, 주민등록번호 등) 요구
4. 기존 대출 상환을 위한 신규 대출 유도
5. 정부지원금, 환급금 등을 빙자한 금전 요구

분석 결과를 다음 형식으로 제공해주세요:
- 보이스피싱 확률(0-1 사이 숫자): 의심 정도를 나타내는 확률값
- 위험 수준(안전/주의/경고/위험): 전반적인 위험도
- 의심 키워드: 발견된 의심 키워드 목록
- 설명: 왜 의심되는지 또는 안전한지에 대한 간략한 설명
- 대응 방법: 사용자에게 제공할 적절한 대응 방법`

// assistantPersona is the system prompt for conversational replies.
const assistantPersona = `당신은 어르신을 돌보는 AI 비서입니다. 사용자에게 친절하고 도움이 되는 방식으로 응답해 주세요.

특히 다음 사항에 유의하세요:
- 보이스피싱과 같은 금융 사기를 감지하고 경고해야 합니다
- 계좌번호, 비밀번호, OTP 등의 민감한 금융 정보 요청에 주의해야 합니다
- 간결하고 자연스러운 대화체로 응답하세요
- 한국어로 대화합니다`

// Keep at most this many history entries per completion request.
const maxHistoryMessages = 10

const defaultTimeout = 20 * time.Second

// Client wraps the chat-completions API behind the two operations the
// scorers and the assistant need. A nil *Client is a valid "disabled"
// client; construction returns nil when no API key is configured.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *logger.Logger
}

// New creates a Client from config. Returns nil when the integration is
// disabled or no API key is available, which callers treat as "no
// classifier, no generated replies".
func New(cfg config.LLMConfig, log *logger.Logger) *Client {
	log = log.WithComponent("llm")

	if !cfg.Enabled {
		log.Info().Msg("LLM integration disabled")
		return nil
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("LLM enabled but no API key configured, running without it")
		return nil
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	log.Info().Str("model", cfg.Model).Msg("LLM client ready")

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		logger:      log,
	}
}

// Classify asks the model whether text looks like a phishing attempt and
// returns the raw free-form response.
func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(phishingPrompt, text),
		},
	})
}

// Generate produces a conversational reply to input, given the alternating
// user/assistant history of the session so far.
func (c *Client) Generate(ctx context.Context, history []string, input string) (string, error) {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: assistantPersona,
	})
	for i, entry := range history {
		role := openai.ChatMessageRoleUser
		if i%2 == 1 {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: entry})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	return c.complete(ctx, messages)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

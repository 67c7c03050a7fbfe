package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/infrastructure/resilience"
)

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	// RPS caps outbound request rate; zero or negative disables the cap.
	RPS float64
	// MaxDocChars caps the document text per request so oversized PDFs do
	// not blow the model context; zero selects the default.
	MaxDocChars int
	Executor    *resilience.Executor
}

// Extractor analyzes claim document text through the OpenAI chat API and
// maps the model's answer onto the finding taxonomy.
type Extractor struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxDocChars int
	limiter     *rate.Limiter
	executor    *resilience.Executor
	prompts     map[domain.DocType]promptSpec
}

func NewExtractor(opts Options) (*Extractor, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new finding extractor",
			errors.New("OpenAI API key is required"))
	}

	prompts, err := loadPrompts()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	clientConfig := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	model := opts.Model
	if model == "" {
		model = goopenai.GPT4
	}

	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		burst := int(math.Ceil(opts.RPS))
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	maxDocChars := opts.MaxDocChars
	if maxDocChars <= 0 {
		maxDocChars = defaultMaxDocChars
	}

	return &Extractor{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: float32(opts.Temperature),
		maxDocChars: maxDocChars,
		limiter:     limiter,
		executor:    executor,
		prompts:     prompts,
	}, nil
}

func (e *Extractor) AnalyzeDocument(ctx context.Context, docType domain.DocType, text string) (domain.DocumentAnalysis, error) {
	spec, ok := e.prompts[docType]
	if !ok {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "analyze document",
			fmt.Errorf("no prompt for document type %q", docType))
	}
	if strings.TrimSpace(text) == "" {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "analyze document",
			errors.New("empty document text"))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return domain.DocumentAnalysis{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	request := goopenai.ChatCompletionRequest{
		Model: e.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt(spec.Focus)},
			{Role: goopenai.ChatMessageRoleUser, Content: spec.UserPrefix + "\n\n" + capDocumentText(text, e.maxDocChars)},
		},
		MaxTokens:   spec.MaxTokens,
		Temperature: e.temperature,
	}

	var response goopenai.ChatCompletionResponse
	err := e.executor.Execute(ctx, "openai.chat_completion", func(callCtx context.Context) error {
		resp, err := e.client.CreateChatCompletion(callCtx, request)
		if err != nil {
			return err
		}
		response = resp
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return domain.DocumentAnalysis{}, wrapTemporaryIfNeeded(fmt.Sprintf("analyze %s document", docType), err)
	}

	if len(response.Choices) == 0 {
		return domain.DocumentAnalysis{}, fmt.Errorf("openai returned no choices")
	}

	analysis, err := parseAnalysis(response.Choices[0].Message.Content, docType)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}
	analysis.TokensUsed = response.Usage.TotalTokens
	return analysis, nil
}

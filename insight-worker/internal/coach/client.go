package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/circuitbreaker"
	"zenhabit/pkg/metrics"
	"zenhabit/pkg/trace"
)

var ErrEmptyResponse = errors.New("empty response from model")

// Reflection 模型返回的三段式建议
type Reflection struct {
	Reflection     string `json:"reflection"`
	ImprovementTip string `json:"improvementTip"`
	Motivation     string `json:"motivation"`
}

// Fallback 模型不可用时的固定文案
func Fallback() Reflection {
	return Reflection{
		Reflection:     "You've been active this week. Keep showing up!",
		ImprovementTip: "Try to complete your most important habit first thing in the morning.",
		Motivation:     "Every day is a new opportunity.",
	}
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client 调用 Gemini generateContent，带熔断器和 fallback
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,                // 连续失败3次后打开
		SuccessThreshold:    2,                // 半开状态下成功2次后关闭
		Timeout:             60 * time.Second, // 打开状态持续60秒
		HalfOpenMaxRequests: 1,
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		cb:     circuitbreaker.NewCircuitBreaker(cbConfig),
		logger: logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var reflectionSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"reflection":     map[string]any{"type": "STRING", "description": "A concise summary of recent progress."},
		"improvementTip": map[string]any{"type": "STRING", "description": "One specific tip to improve consistency."},
		"motivation":     map[string]any{"type": "STRING", "description": "A short, punchy motivational phrase."},
	},
	"required": []string{"reflection", "improvementTip", "motivation"},
}

// Reflect asks the model for coaching on habits. It never fails: any error,
// including an open breaker, yields Fallback() with fallback=true.
func (c *Client) Reflect(ctx context.Context, habits []dbcontracts.Habit) (Reflection, bool) {
	var out Reflection
	err := c.cb.Execute(func() error {
		r, err := c.generate(ctx, habits)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		c.logger.Warn("Coach model unavailable, using fallback",
			zap.String("model", c.model),
			zap.String("breaker_state", c.cb.GetState().String()),
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Error(err),
		)
		return Fallback(), true
	}
	return out, false
}

func (c *Client) generate(ctx context.Context, habits []dbcontracts.Habit) (Reflection, error) {
	if c.apiKey == "" {
		return Reflection{}, errors.New("coach api key not configured")
	}

	prompt, err := BuildPrompt(habits)
	if err != nil {
		return Reflection{}, err
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   reflectionSchema,
		},
	})
	if err != nil {
		return Reflection{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reflection{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCoachCallLatency(c.model, "error", time.Since(start))
		return Reflection{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordCoachCallLatency(c.model, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Reflection{}, fmt.Errorf("coach model status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	metrics.RecordCoachCallLatency(c.model, "success", time.Since(start))

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Reflection{}, fmt.Errorf("decode model response: %w", err)
	}
	return parseReflection(gr)
}

func parseReflection(gr generateResponse) (Reflection, error) {
	var text strings.Builder
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	raw := strings.TrimSpace(text.String())
	if raw == "" {
		return Reflection{}, ErrEmptyResponse
	}

	var r Reflection
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Reflection{}, fmt.Errorf("decode reflection: %w", err)
	}
	if r.Reflection == "" || r.ImprovementTip == "" || r.Motivation == "" {
		return Reflection{}, fmt.Errorf("incomplete reflection: %q", raw)
	}
	return r, nil
}

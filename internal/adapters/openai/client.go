package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

// Client is an implementation of the AssistClient interface using OpenAI
type Client struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// assistResponse represents the structured response from the LLM
type assistResponse struct {
	Category       string  `json:"category"`
	Confidence     float64 `json:"confidence"`
	Company        string  `json:"company"`
	JobTitle       string  `json:"job_title"`
	ApplicationURL string  `json:"application_url"`
}

const promptFormat = `You are a job-search email classifier. Analyze the following forwarded email and categorize it.
Respond with a JSON object containing:
- category: one of "job_listing", "application_confirmation", "recruiter_outreach", "unclassified"
- confidence: number between 0 and 1 (how confident you are in the category)
- company: string (company name if identifiable, otherwise empty)
- job_title: string (job title if identifiable, otherwise empty)
- application_url: string (application or listing URL if present, otherwise empty)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// NewClient creates a new OpenAI assist client
func NewClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  promptFormat,
	}
}

// ClassifyEmail asks the model to categorize an email
func (c *Client) ClassifyEmail(ctx context.Context, email *core.InboundEmail) (*core.ClassificationResult, error) {
	processedBody := c.textProcessor.ProcessText(email.TextBody, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, email.From, email.To, email.Subject, processedBody)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a job-search email classifier. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json_object",
	}
	req.ResponseFormat = &responseFormat

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := parseAssistResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return toResult(parsed), nil
}

// parseAssistResponse decodes the model's JSON, tolerating surrounding prose
// by extracting the outermost braces.
func parseAssistResponse(responseText string) (*assistResponse, error) {
	var parsed assistResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err == nil {
		return &parsed, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(responseText); i++ {
		if responseText[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(responseText) - 1; i >= 0; i-- {
		if responseText[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonStart >= jsonEnd {
		return nil, fmt.Errorf("failed to extract JSON from model response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &parsed, nil
}

// toResult maps the model response onto the pipeline's result type, clamping
// out-of-range values rather than trusting the model.
func toResult(r *assistResponse) *core.ClassificationResult {
	category := core.EmailCategory(r.Category)
	if !core.ValidCategory(r.Category) {
		category = core.CategoryUnclassified
	}
	confidence := r.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return &core.ClassificationResult{
		Category:       category,
		Confidence:     confidence,
		Company:        r.Company,
		JobTitle:       r.JobTitle,
		ApplicationURL: r.ApplicationURL,
	}
}

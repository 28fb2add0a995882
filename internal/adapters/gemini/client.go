package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/utils"
)

// Client is an implementation of the AssistClient interface using Google Gemini
type Client struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
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

// NewClient creates a new Gemini assist client
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Client{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  promptFormat,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyEmail asks the model to categorize an email
func (c *Client) ClassifyEmail(ctx context.Context, email *core.InboundEmail) (*core.ClassificationResult, error) {
	processedBody := c.textProcessor.ProcessText(email.TextBody, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, email.From, email.To, email.Subject, processedBody)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	var parsed assistResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		// Tolerate surrounding prose by extracting the outermost braces.
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
	}

	category := core.EmailCategory(parsed.Category)
	if !core.ValidCategory(parsed.Category) {
		category = core.CategoryUnclassified
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &core.ClassificationResult{
		Category:       category,
		Confidence:     confidence,
		Company:        parsed.Company,
		JobTitle:       parsed.JobTitle,
		ApplicationURL: parsed.ApplicationURL,
	}, nil
}

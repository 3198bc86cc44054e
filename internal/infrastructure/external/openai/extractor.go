// Package openai implements receipt field extraction with GPT-4 Vision.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
)

const systemPrompt = "You are a receipt reader for an expense claim system. " +
	"Extract the claimable fields from the receipt images and respond with valid JSON only."

const extractionPrompt = `Read the receipt and return JSON with these fields:
{
  "amount": <total amount as a number>,
  "currency": "<ISO currency code>",
  "date": "<receipt date, YYYY-MM-DD>",
  "category_code": "<one of: TRAVEL, MEALS, ACCOMMODATION, SUPPLIES, OTHER>",
  "description": "<one-line description of the expense>",
  "vendor": "<merchant name>",
  "confidence": <your confidence in the extraction, 0-100>
}
Use null for fields you cannot read. Lower the confidence when the receipt is
blurry, partial, or handwritten.`

// Extractor implements port.ReceiptExtractor using the Vision API
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewExtractor creates a new receipt extractor
func NewExtractor(apiKey, model string, temperature float32, logger *zap.Logger) *Extractor {
	return &Extractor{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

type receiptPayload struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Date         string  `json:"date"`
	CategoryCode string  `json:"category_code"`
	Description  string  `json:"description"`
	Vendor       string  `json:"vendor"`
	Confidence   float64 `json:"confidence"`
}

// Extract reads receipt page images and proposes claim fields
func (e *Extractor) Extract(ctx context.Context, pages [][]byte) (*port.ReceiptExtraction, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to extract from")
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
	}
	for _, page := range pages {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(page),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		e.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var payload receiptPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			e.logger.Error("Failed to parse extraction response",
				zap.Error(err), zap.String("content", content))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	extraction := &port.ReceiptExtraction{
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		CategoryCode: payload.CategoryCode,
		Description:  payload.Description,
		Vendor:       payload.Vendor,
		Confidence:   clampConfidence(payload.Confidence),
	}
	if payload.Date != "" {
		if d, err := time.Parse("2006-01-02", payload.Date); err == nil {
			extraction.ClaimDate = &d
		}
	}

	e.logger.Info("Receipt extraction completed",
		zap.Float64("amount", extraction.Amount),
		zap.Float64("confidence", extraction.Confidence))
	return extraction, nil
}

// extractJSON pulls a JSON object out of a markdown code block
func extractJSON(content string) string {
	start := strings.Index(content, "```json")
	if start == -1 {
		start = strings.Index(content, "```")
		if start == -1 {
			return ""
		}
		start += 3
	} else {
		start += 7
	}

	end := strings.Index(content[start:], "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(content[start : start+end])
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Verify interface compliance
var _ port.ReceiptExtractor = (*Extractor)(nil)

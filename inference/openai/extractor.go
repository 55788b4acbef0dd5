package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/inference"
)

// FragmentExtractor implements inference.FragmentExtractor using
// OpenAI-compatible chat APIs.
type FragmentExtractor struct {
	client      llms.Model
	schema      *jsonschema.Schema
	temperature float64
	logger      *slog.Logger
}

// fragment is the JSON payload expected from the model.
type fragment struct {
	VendorName         string        `json:"vendor_name"`
	DocumentType       string        `json:"document_type"`
	Pricing            []pricingItem `json:"pricing"`
	ProductsOrServices []string      `json:"products_or_services"`
	DeliveryTerms      string        `json:"delivery_terms"`
	PaymentTerms       string        `json:"payment_terms"`
	SpecialClauses     string        `json:"special_clauses"`
	Notes              string        `json:"notes"`
	Confidence         float32       `json:"confidence"`
}

type pricingItem struct {
	Item       string `json:"item"`
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

// NewFragmentExtractor creates an extractor against an
// OpenAI-compatible endpoint. Pass "none" as token for local services
// that don't require authentication.
func NewFragmentExtractor(host, model, token string, temperature float64) (inference.FragmentExtractor, error) {
	return newFragmentExtractor(host, model, token, temperature)
}

func newFragmentExtractor(host, model, token string, temperature float64) (*FragmentExtractor, error) {
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	schema, err := compileFragmentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile fragment schema: %w", err)
	}

	return &FragmentExtractor{
		client:      client,
		schema:      schema,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-extractor"),
	}, nil
}

// ExtractFragment extracts structured vendor data from a single chunk.
// Malformed responses are treated as retryable; the caller's retry
// budget decides when to give up.
func (e *FragmentExtractor) ExtractFragment(ctx context.Context, chunk core.DocumentChunk, totalChunks int) (*core.StructuredData, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(chunk.ID, totalChunks, chunk.Content))},
		},
	}

	response, err := e.client.GenerateContent(ctx, content,
		llms.WithTemperature(e.temperature),
		llms.WithJSONMode())
	if err != nil {
		return nil, classifyError(err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("empty model response for chunk %d", chunk.ID)
	}

	responseText := stripCodeFences(response.Choices[0].Content)
	responseText = repairJSON(responseText)

	var raw interface{}
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		e.logger.Warn("error parsing model response",
			"chunk_id", chunk.ID,
			"response", responseText,
			"err", err)
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if err := e.schema.Validate(raw); err != nil {
		e.logger.Warn("model response failed schema validation",
			"chunk_id", chunk.ID,
			"err", err)
		return nil, fmt.Errorf("validate model response: %w", err)
	}

	var payload fragment
	if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	return payload.toStructuredData(), nil
}

func (f *fragment) toStructuredData() *core.StructuredData {
	data := &core.StructuredData{
		VendorName:         strings.TrimSpace(f.VendorName),
		DocumentType:       strings.TrimSpace(f.DocumentType),
		ProductsOrServices: f.ProductsOrServices,
		DeliveryTerms:      strings.TrimSpace(f.DeliveryTerms),
		PaymentTerms:       strings.TrimSpace(f.PaymentTerms),
		SpecialClauses:     strings.TrimSpace(f.SpecialClauses),
		Notes:              strings.TrimSpace(f.Notes),
		ConfidenceScore:    f.Confidence,
	}
	for _, p := range f.Pricing {
		item := core.PricingItem{
			Item:       strings.TrimSpace(p.Item),
			Quantity:   strings.TrimSpace(p.Quantity),
			UnitPrice:  strings.TrimSpace(p.UnitPrice),
			TotalPrice: strings.TrimSpace(p.TotalPrice),
		}
		if item.Item == "" {
			continue
		}
		data.Pricing = append(data.Pricing, item)
	}
	return data
}

// statusCodeRE matches the HTTP status the client embeds in API
// errors. The client exposes no typed error, so the anchored prefix is
// the only reliable handle; matching the prefix rather than a bare
// code keeps response bodies that mention "429" from confusing the
// classification.
var statusCodeRE = regexp.MustCompile(`status code:?\s*(\d{3})`)

// classifyError marks client-side rejections as permanent so the retry
// loop doesn't burn its budget on requests that can never succeed.
// Rate limiting (429), timeouts and server errors stay retryable.
func classifyError(err error) error {
	m := statusCodeRE.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	switch m[1] {
	case "400", "401", "403", "404", "413", "422":
		return inference.Permanent(err)
	}
	return err
}

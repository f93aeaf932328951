package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// DefaultVisionModel is the Gemini model used for image extraction.
const DefaultVisionModel = "gemini-2.5-flash"

// VisionParser delegates extraction of scanned statement images to a
// multimodal model. The model is instructed to return a strict JSON list of
// transactions; validity decisions (missing amounts, odd dates) are left to
// the normalizer.
type VisionParser struct {
	Model string
}

func NewVisionParser() *VisionParser {
	return &VisionParser{Model: DefaultVisionModel}
}

const visionPrompt = "You are a bank statement reader.\n\n" +
	"Task:\n" +
	"- Read ALL transactions visible in the attached statement image.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array of objects.\n\n" +
	"Each object must have these fields:\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"description\": string\n" +
	"- \"amount\": number (positive for money IN, negative for money OUT)\n" +
	"- \"type\": \"credit\" or \"debit\"\n" +
	"- \"reference\": string or null\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

type visionTransaction struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Type        string   `json:"type"`
	Reference   string   `json:"reference"`
}

func (p *VisionParser) Parse(ctx context.Context, data []byte) ([]LooseRow, error) {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return nil, fmt.Errorf("VisionParser: %w (set GEMINI_API_KEY)", ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("VisionParser: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: visionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: sniffImageMIME(data),
						Data:     data,
					},
				},
			},
		},
	}

	model := p.Model
	if model == "" {
		model = DefaultVisionModel
	}
	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("VisionParser: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("VisionParser: empty response from model")
	}

	var parsed []visionTransaction
	clean := cleanModelJSON(rawText)
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("VisionParser: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	rows := make([]LooseRow, 0, len(parsed))
	for _, tx := range parsed {
		row := LooseRow{
			Date:        tx.Date,
			Description: tx.Description,
			Indicator:   normalizeIndicator(tx.Type),
			Reference:   tx.Reference,
		}
		if tx.Amount != nil {
			row.Amount = decimal.NewFromFloat(*tx.Amount)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cleanModelJSON strips Markdown fences and stray text around the JSON array
// for the cases where the model ignores the output instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

func sniffImageMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	default:
		return "image/png"
	}
}

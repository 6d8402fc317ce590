package tool

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// QRCodeTool builds a qrserver.com image URL. It makes no network call.
type QRCodeTool struct {
	BaseTool
	baseURL string
	size    string
	now     func() time.Time
}

// NewQRCodeTool creates the generate_qr_code tool. size is "WxH", e.g. "300x300".
func NewQRCodeTool(baseURL, size string) *QRCodeTool {
	return &QRCodeTool{
		BaseTool: BaseTool{
			ToolName:        "generate_qr_code",
			ToolDescription: "Generate QR code image URL for any text or URL",
			ToolSchema:      stringSchema("data", "Text or URL to encode in QR code"),
		},
		baseURL: baseURL,
		size:    size,
		now:     time.Now,
	}
}

func (t *QRCodeTool) Execute(_ context.Context, args map[string]any) (Payload, error) {
	data := stringArg(args, "data")

	u, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid QR base URL: %w", err)
	}
	// size first, then data, as the rendering service documents it
	u.RawQuery = "size=" + url.QueryEscape(t.size) + "&data=" + url.QueryEscape(data)

	return Payload{
		"data":         data,
		"qr_code_url":  u.String(),
		"instructions": "Open the URL in a browser to view/download the QR code",
		"timestamp":    timestamp(t.now()),
	}, nil
}

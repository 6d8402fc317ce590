package tool

import "github.com/RobinCoderZhao/mcp-toolkit/internal/config"

// NewBuiltinRegistry registers the built-in tools in catalog order:
// get_weather, wikipedia_search, generate_qr_code.
func NewBuiltinRegistry(cfg config.Config) *Registry {
	client := NewHTTPClient(cfg.Tools.Timeout)

	r := NewRegistry()
	r.MustRegister(
		NewWeatherTool(cfg.Weather.APIKey, cfg.Weather.BaseURL, client),
		NewWikipediaTool(cfg.Wikipedia.SearchURL, cfg.Wikipedia.SummaryURL, cfg.Wikipedia.UserAgent, client),
		NewQRCodeTool(cfg.QRCode.BaseURL, cfg.QRCode.Size),
	)
	return r
}

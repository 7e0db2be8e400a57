package chat

import (
	"github.com/upb/chat-fallback-proxy/services/providers"
	"github.com/upb/chat-fallback-proxy/services/routing"
)

// Catalog describes the configured models and the order they are tried in
type Catalog struct {
	Provider      string                      `json:"provider"`
	LongThreshold int                         `json:"long_threshold"`
	Models        []providers.ModelInfo       `json:"models"`
	Orders        map[routing.Regime][]string `json:"orders"`
}

// NewCatalog lists the prioritizer's models in catalog order. Metadata comes
// from the client when it knows the model; unknown IDs are listed by name only.
func NewCatalog(prioritizer *routing.Prioritizer, client providers.Client) *Catalog {
	known := make(map[string]providers.ModelInfo)
	provider := ""
	if client != nil {
		provider = client.Name()
		for _, m := range client.ListModels() {
			known[m.ID] = m
		}
	}

	ids := prioritizer.Catalog()
	models := make([]providers.ModelInfo, 0, len(ids))
	for _, id := range ids {
		info, ok := known[id]
		if !ok {
			info = providers.ModelInfo{ID: id, Name: id, Provider: provider}
		}
		models = append(models, info)
	}

	return &Catalog{
		Provider:      provider,
		LongThreshold: prioritizer.Threshold(),
		Models:        models,
		Orders:        prioritizer.Strategies(),
	}
}

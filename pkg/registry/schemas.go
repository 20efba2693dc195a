package registry

import "github.com/quantor/signalflow/pkg/models"

func comparisonSchema(extra map[string]any, required ...string) map[string]any {
	properties := map[string]any{
		"op": map[string]any{
			"type": "string",
			"enum": []string{">", "<", ">=", "<=", "=="},
		},
		"value": map[string]any{
			"type": []string{"number", "string"},
		},
	}

	for k, v := range extra {
		properties[k] = v
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   append([]string{"op", "value"}, required...),
	}
}

func defaultSchemas() map[models.NodeType]map[string]any {
	ticker := map[string]any{"type": "string", "minLength": 1}

	return map[models.NodeType]map[string]any{
		models.NodeTypeTimeInterval: {
			"type": "object",
			"properties": map[string]any{
				"target_time": map[string]any{
					"type":    "string",
					"pattern": `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
				},
				"last_run": map[string]any{"type": "string"},
			},
			"required": []string{"target_time"},
		},
		models.NodeTypePrice: comparisonSchema(map[string]any{
			"ticker": ticker,
		}, "ticker"),
		models.NodeTypePercentage: comparisonSchema(map[string]any{
			"ticker": ticker,
			"lookback": map[string]any{
				"type": "string",
				"enum": []string{"1d", "1w", "1m", "3m", "1y"},
			},
		}, "ticker", "lookback"),
		models.NodeTypeRisk: comparisonSchema(map[string]any{
			"metric": map[string]any{
				"type": "string",
				"enum": []string{"general", "large_cap", "ema", "combined", "market"},
			},
		}, "metric"),
		models.NodeTypeSentiment: comparisonSchema(map[string]any{
			"ticker": ticker,
		}, "ticker"),
		models.NodeTypeLogicGate: {
			"type": "object",
			"properties": map[string]any{
				"op": map[string]any{
					"type": "string",
					"enum": []string{"AND", "OR"},
				},
			},
			"required": []string{"op"},
		},
		models.NodeTypeIfGate: {
			"type": "object",
		},
		models.NodeTypeEndAutomation: {
			"type": "object",
		},
		models.NodeTypeTracking: {
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{"type": "string"},
			},
		},
		models.NodeTypeNexus: {
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{"type": "string"},
			},
		},
		models.NodeTypeSendEmail: {
			"type": "object",
			"properties": map[string]any{
				"email":   map[string]any{"type": "string"},
				"subject": map[string]any{"type": "string"},
				"message": map[string]any{"type": "string"},
			},
		},
		models.NodeTypeCompletionEmail: {
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{"type": "string"},
			},
		},
		models.NodeTypeWebhook: {
			"type": "object",
			"properties": map[string]any{
				"url":     map[string]any{"type": "string", "minLength": 1},
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"url"},
		},
		models.NodeTypeEmailInfo: {
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{"type": "string"},
			},
		},
		models.NodeTypeRHInfo: {
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{"type": "string"},
			},
		},
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/protocol"
)

var errProviderNotConfigured = errors.New("provider not configured")

// ConditionEvaluator resolves a single conditional node against live signal
// data. It never returns an error: provider failures and malformed payloads
// degrade to a false outcome with a reason string, so a flaky data source can
// stop a run but never abort it.
type ConditionEvaluator struct {
	market    protocol.MarketData
	risk      protocol.RiskProvider
	sentiment protocol.SentimentProvider
	logger    *slog.Logger
}

func NewConditionEvaluator(
	market protocol.MarketData,
	risk protocol.RiskProvider,
	sentiment protocol.SentimentProvider,
	logger *slog.Logger,
) *ConditionEvaluator {
	return &ConditionEvaluator{
		market:    market,
		risk:      risk,
		sentiment: sentiment,
		logger:    logger.With("module", "condition_evaluator"),
	}
}

// ConditionLabel is the human-readable name of a conditional node type, used
// in stop reasons and failure reports.
func ConditionLabel(t models.NodeType) string {
	switch t {
	case models.NodeTypePrice:
		return "Price"
	case models.NodeTypePercentage:
		return "Percentage"
	case models.NodeTypeRisk:
		return "Risk"
	case models.NodeTypeSentiment:
		return "Sentiment"
	default:
		return string(t)
	}
}

// Evaluate resolves the node's current value and applies its comparison.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, node *models.Node) (bool, string) {
	label := ConditionLabel(node.Type)

	cond, err := node.Condition()
	if err != nil {
		return false, fmt.Sprintf("%s invalid config: %v", label, err)
	}

	current, err := e.currentValue(ctx, node.Type, cond)
	if err != nil {
		return false, fmt.Sprintf("%s fetch failed: %v", label, err)
	}

	result := cond.Op.Compare(current, cond.Value)

	return result, fmt.Sprintf("%s %.2f %s %.2f is %t", label, current, cond.Op, cond.Value, result)
}

func (e *ConditionEvaluator) currentValue(ctx context.Context, nodeType models.NodeType, cond models.ConditionData) (float64, error) {
	switch nodeType {
	case models.NodeTypePrice:
		if e.market == nil {
			return 0, errProviderNotConfigured
		}

		return e.market.Price(ctx, cond.Ticker)

	case models.NodeTypePercentage:
		return e.percentageChange(ctx, cond)

	case models.NodeTypeRisk:
		return e.riskScore(ctx, cond.Metric)

	case models.NodeTypeSentiment:
		if e.sentiment == nil {
			return 0, errProviderNotConfigured
		}

		score, err := e.sentiment.Sentiment(ctx, cond.Ticker)
		if err != nil {
			return 0, err
		}

		// Rescale [-1, 1] to [0, 100].
		return (score + 1) * 50, nil

	default:
		return 0, fmt.Errorf("unsupported condition type %q", nodeType)
	}
}

func (e *ConditionEvaluator) percentageChange(ctx context.Context, cond models.ConditionData) (float64, error) {
	if e.market == nil {
		return 0, errProviderNotConfigured
	}

	current, err := e.market.Price(ctx, cond.Ticker)
	if err != nil {
		return 0, err
	}

	past, err := e.market.HistoricalClose(ctx, cond.Ticker, cond.Lookback)
	if err != nil {
		return 0, err
	}

	if past == 0 {
		// Missing history resolves to "no change" rather than an error.
		return 0, nil
	}

	return (current - past) / past * 100, nil
}

func (e *ConditionEvaluator) riskScore(ctx context.Context, metric string) (float64, error) {
	if e.risk == nil {
		return 0, errProviderNotConfigured
	}

	scores, err := e.risk.Scores(ctx)
	if err != nil {
		return 0, err
	}

	switch metric {
	case "general":
		return scores.General, nil
	case "large_cap":
		return scores.LargeCap, nil
	case "ema":
		return scores.EMA, nil
	case "combined":
		return scores.Combined, nil
	case "market":
		return marketInvestScore(scores), nil
	default:
		return 0, fmt.Errorf("unknown risk metric %q", metric)
	}
}

// marketInvestScore folds two recession-likelihood signals into a bounded
// [0, 100] score: elevated VIX and a weak EMA score both push the score
// down.
func marketInvestScore(scores protocol.RiskScores) float64 {
	vixLikelihood := clamp01((scores.VIXPrice - 12) / 28)
	emaLikelihood := clamp01(1 - scores.EMA/100)

	return clamp01(1-(vixLikelihood+emaLikelihood)/2) * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

package agent

import (
	"fmt"
	"strings"
)

var newsVocab = []string{
	"news", "headline", "article", "announcement", "sentiment",
	"新聞", "消息", "快訊", "頭條", "報導", "情緒",
}

var marketVocab = []string{
	"price", "chart", "candle", "kline", "rsi", "macd", "ema", "sma",
	"indicator", "support", "resistance", "trend", "volume",
	"價格", "多少錢", "分析", "技術", "指標", "走勢", "k線", "均線",
}

var symbolVocab = []string{
	"btc", "bitcoin", "比特幣",
	"eth", "ethereum", "以太坊",
	"sol", "solana", "bnb", "xrp", "doge", "ada", "usdt",
}

func containsAny(haystack string, needles []string) (string, bool) {
	folded := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(folded, n) {
			return n, true
		}
	}
	return "", false
}

// NewsAgent covers headlines, articles and market sentiment.
type NewsAgent struct {
	*Engine
}

func NewNewsAgent(d Deps) *NewsAgent {
	return &NewsAgent{newEngine("news", "news", d)}
}

func (a *NewsAgent) ShouldParticipate(t Task) (bool, string) {
	switch t.Type {
	case TaskNews, TaskSentiment, TaskDeepAnalysis:
		return true, fmt.Sprintf("task type %s is news territory", t.Type)
	}
	if word, ok := containsAny(t.Query, newsVocab); ok {
		return true, fmt.Sprintf("query mentions %q", word)
	}
	return false, "nothing news-related in the task"
}

// TechnicalAgent covers prices, candles and indicator analysis.
type TechnicalAgent struct {
	*Engine
}

func NewTechnicalAgent(d Deps) *TechnicalAgent {
	return &TechnicalAgent{newEngine("technical", "market", d)}
}

func (a *TechnicalAgent) ShouldParticipate(t Task) (bool, string) {
	switch t.Type {
	case TaskTechnical, TaskDeepAnalysis:
		return true, fmt.Sprintf("task type %s needs market data", t.Type)
	}
	if len(t.Symbols) > 0 {
		return true, fmt.Sprintf("task names symbols %v", t.Symbols)
	}
	if word, ok := containsAny(t.Query, marketVocab); ok {
		return true, fmt.Sprintf("query mentions %q", word)
	}
	if word, ok := containsAny(t.Query, symbolVocab); ok {
		return true, fmt.Sprintf("query mentions %q", word)
	}
	return false, "no market angle in the task"
}

// ChatAgent is the catch-all conversationalist and the fallback target
// for steps no specialist claims.
type ChatAgent struct {
	*Engine
}

func NewChatAgent(d Deps) *ChatAgent {
	return &ChatAgent{newEngine("chat", "general", d)}
}

func (a *ChatAgent) ShouldParticipate(t Task) (bool, string) {
	return true, "chat handles anything"
}

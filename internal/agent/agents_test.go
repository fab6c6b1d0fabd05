package agent

import "testing"

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		in   string
		want TaskType
	}{
		{"news", TaskNews},
		{"Technical", TaskTechnical},
		{"sentiment", TaskSentiment},
		{"generalChat", TaskGeneralChat},
		{"general_chat", TaskGeneralChat},
		{"chat", TaskGeneralChat},
		{"deepAnalysis", TaskDeepAnalysis},
		{"deep_analysis", TaskDeepAnalysis},
		{"", TaskUnknown},
		{"weather", TaskUnknown},
	}
	for _, tt := range tests {
		if got := ParseTaskType(tt.in); got != tt.want {
			t.Errorf("Expected ParseTaskType(%q)=%v, but got %v", tt.in, tt.want, got)
		}
	}
}

func TestShouldParticipate(t *testing.T) {
	deps := Deps{}
	newsAgent := NewNewsAgent(deps)
	techAgent := NewTechnicalAgent(deps)
	chatAgent := NewChatAgent(deps)

	tests := []struct {
		name string
		task Task
		news bool
		tech bool
	}{
		{"news type", Task{Type: TaskNews, Query: "anything"}, true, false},
		{"sentiment type", Task{Type: TaskSentiment, Query: "mood?"}, true, false},
		{"technical type", Task{Type: TaskTechnical, Query: "anything"}, false, true},
		{"deep analysis pulls both", Task{Type: TaskDeepAnalysis, Query: "full picture"}, true, true},
		{"news vocabulary", Task{Type: TaskUnknown, Query: "最新的比特幣新聞"}, true, true},
		{"market vocabulary", Task{Type: TaskUnknown, Query: "BTC 現在價格多少錢"}, false, true},
		{"symbols listed", Task{Type: TaskUnknown, Query: "tell me about it", Symbols: []string{"ETHUSDT"}}, false, true},
		{"plain chat", Task{Type: TaskGeneralChat, Query: "hello there"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := newsAgent.ShouldParticipate(tt.task); got != tt.news {
				t.Errorf("Expected news participation=%v, but got %v", tt.news, got)
			}
			if got, _ := techAgent.ShouldParticipate(tt.task); got != tt.tech {
				t.Errorf("Expected technical participation=%v, but got %v", tt.tech, got)
			}
			if got, _ := chatAgent.ShouldParticipate(tt.task); !got {
				t.Errorf("Expected chat to always participate, but got %v", got)
			}
		})
	}
}

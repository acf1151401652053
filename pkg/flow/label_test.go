package flow

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"user task fallback", Node{Type: UserTask}, "用户任务"},
		{"properties name", Node{Type: UserTask, Data: Data{Properties: map[string]any{"name": "Approve"}}}, "Approve"},
		{"properties over data", Node{Type: UserTask, Data: Data{Name: "data", Properties: map[string]any{"name": "props"}}}, "props"},
		{"data name", Node{Type: ServiceTask, Data: Data{Name: "Send mail"}}, "Send mail"},
		{"empty data name uses default", Node{Type: UserTask, Data: Data{Name: ""}}, "用户任务"},
		{"nil property ignored", Node{Type: ServiceTask, Data: Data{Properties: map[string]any{"name": nil}}}, "自动任务"},
		{"non-string property", Node{Type: CallActivity, Data: Data{Properties: map[string]any{"name": 42}}}, "42"},
		{"start", Node{Type: StartEvent}, "开始"},
		{"end", Node{Type: EndEvent}, "结束"},
		{"parallel", Node{Type: ParallelGateway}, "并行网关"},
		{"call activity", Node{Type: CallActivity}, "子流程"},
		{"exclusive has no fallback", Node{Type: ExclusiveGateway}, ""},
		{"inclusive has no fallback", Node{Type: InclusiveGateway}, ""},
		{"inclusive with label", Node{Type: InclusiveGateway, Data: Data{Name: "any"}}, "any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.node); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

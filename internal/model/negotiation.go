package model

import "time"

// 谈判阶段
const (
	StageInitial      = "initial"
	StageValuation    = "valuation"
	StageDueDiligence = "due_diligence"
	StageFinalTerms   = "final_terms"
	StageClosing      = "closing"
)

// NegotiationContext 谈判上下文
// 打开谈判会话时创建，之后由调用方在轮次之间更新，服务端不会主动修改
type NegotiationContext struct {
	DealID          string                 `json:"deal_id,omitempty"`
	TargetID        string                 `json:"target_id,omitempty"`
	TargetName      string                 `json:"target_name,omitempty"`
	Sector          string                 `json:"sector,omitempty"`
	Valuation       float64                `json:"valuation,omitempty"`
	AskingPrice     float64                `json:"asking_price,omitempty"`
	NegotiationType string                 `json:"negotiation_type"` // acquisition, partnership, investment, joint_venture
	Stage           string                 `json:"stage"`
	UserRole        string                 `json:"user_role"`        // buyer, seller, advisor
	CounterpartRole string                 `json:"counterpart_role"` // buyer, seller, advisor
	KeyIssues       []string               `json:"key_issues,omitempty"`
	Constraints     NegotiationConstraints `json:"constraints"`
}

// NegotiationConstraints 谈判约束
type NegotiationConstraints struct {
	BudgetLimit float64  `json:"budget_limit,omitempty"`
	Timeline    string   `json:"timeline,omitempty"`
	MustHaves   []string `json:"must_haves"`
	NiceToHaves []string `json:"nice_to_haves"`
}

// Negotiation 持久化的谈判记录
// messages/context 整体覆盖写入，最后写入者生效；revision 每次更新加 1
type Negotiation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Scenario  string             `json:"scenario"`
	Context   NegotiationContext `json:"context"`
	Messages  []ChatMessage      `json:"messages"`
	Summary   string             `json:"summary,omitempty"`
	Score     *int               `json:"score,omitempty"`
	Revision  int                `json:"revision"`
	CreatedAt time.Time          `json:"created_at"`
}

// AIResponse 谈判教练的一次结构化回复
// 所有字段都有确定性默认值，调用方不需要处理缺失
type AIResponse struct {
	Message           string   `json:"message"`
	Strategy          string   `json:"strategy"`
	Confidence        float64  `json:"confidence"`
	SuggestedActions  []string `json:"suggested_actions"`
	RiskAssessment    string   `json:"risk_assessment"`
	NextSteps         []string `json:"next_steps"`
	EmotionalGuidance string   `json:"emotional_guidance"`
	Mode              string   `json:"mode"` // openai, mock
}

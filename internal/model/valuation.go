package model

import "time"

// ValuationRequest 估值表单输入
type ValuationRequest struct {
	CompanyName string  `json:"company_name"`
	Sector      string  `json:"sector"`
	Country     string  `json:"country"`
	CA          float64 `json:"ca"`
	CAN1        float64 `json:"ca_n1"`
	CAN2        float64 `json:"ca_n2"`
	EBITDA      float64 `json:"ebitda"`
	Debt        float64 `json:"debt"`
	Treasury    float64 `json:"treasury"`
	Growth      float64 `json:"growth"`
	Employees   int     `json:"employees"`
	Barriers    string  `json:"barriers"`
	Clients     string  `json:"clients"`
	Digital     string  `json:"digital"`
	Brand       string  `json:"brand"`
	Comment     string  `json:"comment"`
}

// ValuationResult 一次估值的结构化结果
// RiskScore 始终在 [0,100]；报告保留模型原文
type ValuationResult struct {
	MinValuation float64 `json:"minValuation"`
	MaxValuation float64 `json:"maxValuation"`
	RiskScore    int     `json:"riskScore"`
	Report       string  `json:"report"`
}

// Evaluation 持久化的估值记录（创建后不再修改）
type Evaluation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CompanyName  string    `json:"company_name"`
	MinValuation float64   `json:"min_valuation"`
	MaxValuation float64   `json:"max_valuation"`
	RiskScore    int       `json:"risk_score"`
	Report       string    `json:"report"`
	CreatedAt    time.Time `json:"created_at"`
}

package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Configuration is the payroll setup of one business.
type Configuration struct {
	ID                  string     `json:"id"`
	BusinessID          string     `json:"business_id"`
	Active              bool       `json:"active"`
	DefaultTemplateID   *string    `json:"default_template_id,omitempty"`
	PeriodType          PeriodType `json:"period_type"`
	StandardWorkingDays int        `json:"standard_working_days"`
	Automation          Automation `json:"automation"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Automation struct {
	Enabled     bool `json:"enabled"`
	DayOfMonth  int  `json:"day_of_month"`
	AutoApprove bool `json:"auto_approve"`
	Workers     int  `json:"workers"`
}

type BonusType string

const (
	BonusFixed       BonusType = "fixed"
	BonusPercentage  BonusType = "percentage"
	BonusPerformance BonusType = "performance"
	BonusTenure      BonusType = "tenure"
)

type BonusRule struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Type            BonusType       `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Percent         decimal.Decimal `json:"percent"`
	MinScore        decimal.Decimal `json:"min_score"`
	MinTenureMonths int             `json:"min_tenure_months"`
}

type OvertimeRule struct {
	Enabled             bool            `json:"enabled"`
	Multiplier          decimal.Decimal `json:"multiplier"`
	DailyThresholdHours decimal.Decimal `json:"daily_threshold_hours"`
}

// DeductionRule is a statutory deduction. A disabled rule is skipped.
type DeductionRule struct {
	Enabled bool `json:"enabled"`
	Contribution
}

type DeductionRules struct {
	Tax            DeductionRule `json:"tax"`
	SocialSecurity DeductionRule `json:"social_security"`
	Health         DeductionRule `json:"health"`
	Pension        DeductionRule `json:"pension"`
}

// Template describes how earnings and deductions are computed.
type Template struct {
	ID             string         `json:"id"`
	BusinessID     string         `json:"business_id"`
	Name           string         `json:"name"`
	Overtime       OvertimeRule   `json:"overtime"`
	Bonuses        []BonusRule    `json:"bonuses"`
	Deductions     DeductionRules `json:"deductions"`
	DeductAdvances bool           `json:"deduct_advances"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var (
	DefaultOvertimeMultiplier = decimal.NewFromFloat(1.5)
	DefaultDailyThreshold     = decimal.NewFromInt(8)
)

// DefaultTemplate is used when a business has no template configured.
func DefaultTemplate(businessID string) Template {
	return Template{
		BusinessID: businessID,
		Name:       "Default",
		Overtime: OvertimeRule{
			Enabled:             true,
			Multiplier:          DefaultOvertimeMultiplier,
			DailyThresholdHours: DefaultDailyThreshold,
		},
		DeductAdvances: true,
	}
}

// Threshold is the daily hour count beyond which hours are overtime.
func (t Template) Threshold() decimal.Decimal {
	if t.Overtime.DailyThresholdHours.IsPositive() {
		return t.Overtime.DailyThresholdHours
	}
	return DefaultDailyThreshold
}

func (t Template) Multiplier() decimal.Decimal {
	if t.Overtime.Multiplier.IsPositive() {
		return t.Overtime.Multiplier
	}
	return DefaultOvertimeMultiplier
}

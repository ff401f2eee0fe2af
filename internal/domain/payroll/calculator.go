package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
	"github.com/shopspring/decimal"
)

// CalculationInput is everything needed to compute one employee's payroll.
type CalculationInput struct {
	Employee         employee.Employee
	Period           Period
	Attendance       AttendanceSummary
	Absences         []Absence
	Benefits         []Benefit
	Template         Template
	Config           Configuration
	Advances         []OutstandingAdvance
	PerformanceScore *decimal.Decimal
}

type Result struct {
	Period      Period
	Items       []Item
	Calculation Calculation
	Warnings    []string
}

var (
	hundred    = decimal.NewFromInt(100)
	daysInBase = decimal.NewFromInt(30)
)

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func percentOf(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred)
}

// Calculate computes line items and totals. It is a pure function of in.
func Calculate(in CalculationInput) (Result, error) {
	comp := in.Employee.Compensation
	if !comp.IsConfigured() {
		return Result{}, fmt.Errorf("%w: employee %s (%s)", ErrSalaryConfigMissing, in.Employee.FullName, in.Employee.ID)
	}

	var res Result
	warn := func(format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	threshold := in.Template.Threshold()
	regularHours, overtimeHours := splitHours(in.Attendance, threshold)

	workingDays := in.Period.WorkingDays
	if workingDays <= 0 {
		workingDays = in.Config.StandardWorkingDays
	}
	if workingDays <= 0 {
		workingDays = utils.DaysInclusive(in.Period.Start, in.Period.End)
	}

	workedDays := in.Attendance.WorkedDays
	if workedDays == 0 {
		for _, d := range in.Attendance.Daily {
			if d.Hours.IsPositive() {
				workedDays++
			}
		}
	}
	paidAbsenceDays := 0
	for _, a := range in.Absences {
		if a.Paid {
			paidAbsenceDays += utils.Overlap(in.Period.Start, in.Period.End, a.Start, a.End)
		}
	}
	payableDays := workedDays + paidAbsenceDays
	if payableDays > workingDays {
		payableDays = workingDays
	}
	payable := decimal.NewFromInt(int64(payableDays))

	// 1. Base salary
	var base decimal.Decimal
	switch comp.Type {
	case employee.SalaryTypeMonthly:
		base = comp.MonthlySalary.Mul(payable).Div(daysInBase)
	case employee.SalaryTypeHourly:
		paidHours := regularHours.Add(decimal.NewFromInt(int64(paidAbsenceDays)).Mul(threshold))
		base = comp.HourlyRate.Mul(paidHours)
	case employee.SalaryTypeDaily:
		base = comp.DailyRate.Mul(payable)
	}
	base = round(base)
	res.Items = append(res.Items, Item{
		Category:    CategoryEarnings,
		Type:        ItemBaseSalary,
		Code:        "BASE",
		Description: fmt.Sprintf("Base salary (%s)", comp.Type),
		Amount:      base,
		Taxable:     true,
	})

	// 2. Overtime
	overtime := decimal.Zero
	if overtimeHours.IsPositive() {
		if in.Template.Overtime.Enabled {
			var rate decimal.Decimal
			switch comp.Type {
			case employee.SalaryTypeMonthly:
				rate = comp.MonthlySalary.Div(daysInBase.Mul(threshold))
			case employee.SalaryTypeHourly:
				rate = comp.HourlyRate
			case employee.SalaryTypeDaily:
				rate = comp.DailyRate.Div(threshold)
			}
			overtime = round(overtimeHours.Mul(rate).Mul(in.Template.Multiplier()))
			res.Items = append(res.Items, Item{
				Category:    CategoryEarnings,
				Type:        ItemOvertime,
				Code:        "OVERTIME",
				Description: fmt.Sprintf("Overtime %s h x %s", overtimeHours.String(), in.Template.Multiplier().String()),
				Amount:      overtime,
				Taxable:     true,
			})
		} else {
			warn("overtime of %s hours ignored: template disables overtime", overtimeHours.String())
		}
	}

	// 3. Allowances
	allowances := decimal.Zero
	for _, a := range comp.Allowances {
		amount := round(a.Amount)
		if !amount.IsPositive() {
			continue
		}
		allowances = allowances.Add(amount)
		res.Items = append(res.Items, Item{
			Category:    CategoryEarnings,
			Type:        ItemAllowance,
			Code:        a.Code,
			Description: a.Name,
			Amount:      amount,
			Taxable:     a.Taxable,
		})
	}

	// 4. Bonuses
	bonuses := decimal.Zero
	tenure := in.Employee.TenureMonths(in.Period.End)
	for _, b := range in.Template.Bonuses {
		var amount decimal.Decimal
		switch b.Type {
		case BonusFixed:
			amount = b.Amount
		case BonusPercentage:
			amount = percentOf(base, b.Percent)
		case BonusPerformance:
			if in.PerformanceScore == nil {
				warn("performance bonus %s skipped: no performance score", b.Code)
				continue
			}
			if in.PerformanceScore.LessThan(b.MinScore) {
				continue
			}
			amount = percentOf(percentOf(base, b.Percent), *in.PerformanceScore)
		case BonusTenure:
			if tenure < b.MinTenureMonths {
				continue
			}
			amount = b.Amount
			if !amount.IsPositive() {
				amount = percentOf(base, b.Percent)
			}
		default:
			warn("bonus %s skipped: unknown type %q", b.Code, b.Type)
			continue
		}
		amount = round(amount)
		if !amount.IsPositive() {
			continue
		}
		bonuses = bonuses.Add(amount)
		res.Items = append(res.Items, Item{
			Category:    CategoryEarnings,
			Type:        ItemBonus,
			Code:        b.Code,
			Description: b.Name,
			Amount:      amount,
			Taxable:     true,
		})
	}

	// 5. Totals
	totalEarnings := base.Add(overtime).Add(allowances).Add(bonuses)
	taxable := decimal.Zero
	for _, it := range res.Items {
		if it.Category == CategoryEarnings && it.Taxable {
			taxable = taxable.Add(it.Amount)
		}
	}

	// 6. Deductions
	deductions := decimal.Zero
	deduct := func(category ItemCategory, typ ItemType, code, desc string, amount decimal.Decimal, ref *string) {
		amount = round(amount)
		if !amount.IsPositive() {
			return
		}
		deductions = deductions.Add(amount)
		res.Items = append(res.Items, Item{
			Category:    category,
			Type:        typ,
			Code:        code,
			Description: desc,
			Amount:      amount,
			ReferenceID: ref,
		})
	}

	rules := in.Template.Deductions
	if rules.Tax.Enabled {
		deduct(CategoryDeductions, ItemTax, "TAX", "Tax withholding", rules.Tax.Of(taxable), nil)
	}
	if rules.SocialSecurity.Enabled {
		deduct(CategoryDeductions, ItemSocialSecurity, "SOCIAL_SECURITY", "Social security", rules.SocialSecurity.Of(totalEarnings), nil)
	}
	if rules.Health.Enabled {
		deduct(CategoryDeductions, ItemHealth, "HEALTH", "Health insurance", rules.Health.Of(totalEarnings), nil)
	}
	if rules.Pension.Enabled {
		deduct(CategoryDeductions, ItemPension, "PENSION", "Pension", rules.Pension.Of(totalEarnings), nil)
	}
	for _, b := range in.Benefits {
		id := b.ID
		deduct(CategoryBenefits, ItemBenefit, b.Code, b.Name, b.EmployeeContribution.Of(totalEarnings), &id)
	}

	// Advances only take what earnings can still cover.
	if in.Template.DeductAdvances {
		available := decimal.Max(decimal.Zero, totalEarnings.Sub(deductions))
		for _, a := range in.Advances {
			want := a.Installment
			if !want.IsPositive() || want.GreaterThan(a.Remaining) {
				want = a.Remaining
			}
			amount := decimal.Min(want, available)
			if !amount.IsPositive() {
				if a.Remaining.IsPositive() {
					warn("advance %s not deducted: no earnings left", a.InstrumentID)
				}
				continue
			}
			id := a.InstrumentID
			deduct(CategoryDeductions, ItemAdvance, "ADVANCE", "Advance repayment", amount, &id)
			available = available.Sub(round(amount))
		}
	}

	// 7. Net pay
	res.Calculation = Calculation{
		BaseSalary:      base,
		Overtime:        overtime,
		Allowances:      allowances,
		Bonuses:         bonuses,
		TotalEarnings:   totalEarnings,
		TaxableEarnings: taxable,
		Deductions:      deductions,
		NetPay:          decimal.Max(decimal.Zero, totalEarnings.Sub(deductions)),
	}

	res.Period = in.Period
	res.Period.WorkingDays = workingDays
	res.Period.TotalHours = regularHours.Add(overtimeHours)
	res.Period.OvertimeHours = overtimeHours
	return res, nil
}

// splitHours derives regular and overtime hours. Daily records are split on
// the template threshold; otherwise the summary's own split is used.
func splitHours(a AttendanceSummary, threshold decimal.Decimal) (regular, overtime decimal.Decimal) {
	if len(a.Daily) == 0 {
		return a.RegularHours, a.OvertimeHours
	}
	for _, d := range a.Daily {
		if !d.Hours.IsPositive() {
			continue
		}
		if d.Hours.GreaterThan(threshold) {
			regular = regular.Add(threshold)
			overtime = overtime.Add(d.Hours.Sub(threshold))
			continue
		}
		regular = regular.Add(d.Hours)
	}
	return regular, overtime
}

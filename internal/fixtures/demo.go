package fixtures

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func strPtr(s string) *string { return &s }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// DemoBusinessID is the business the memory driver is seeded for.
const DemoBusinessID = "demo-business"

// SeededDataIDs holds IDs of the seeded demo data
type SeededDataIDs struct {
	// Employee IDs by code
	EmployeeIDs map[string]string // e.g., "EMP001" -> "emp-001"

	// Commission IDs by employee code
	CommissionIDs map[string]string
}

func NewSeededDataIDs() *SeededDataIDs {
	return &SeededDataIDs{
		EmployeeIDs:   make(map[string]string),
		CommissionIDs: make(map[string]string),
	}
}

// ==========================================
// DEFAULT PAYROLL SETUP
// ==========================================

// DefaultTemplateRequest is the template a new business starts with:
// overtime at 1.5x past 8 hours, 5% income tax on taxable earnings, 2%
// social security and 1% health insurance, and a 250 attendance bonus.
func DefaultTemplateRequest() payroll.CreateTemplateRequest {
	return payroll.CreateTemplateRequest{
		Name: "Standard",
		Overtime: payroll.OvertimeRule{
			Enabled:             true,
			Multiplier:          payroll.DefaultOvertimeMultiplier,
			DailyThresholdHours: payroll.DefaultDailyThreshold,
		},
		Bonuses: []payroll.BonusRule{
			{Code: "ATTENDANCE", Name: "Attendance Bonus", Type: payroll.BonusFixed, Amount: dec(250)},
			{Code: "LOYALTY", Name: "Loyalty Bonus", Type: payroll.BonusTenure, Amount: dec(100), MinTenureMonths: 24},
		},
		Deductions: payroll.DeductionRules{
			Tax:            payroll.DeductionRule{Enabled: true, Contribution: payroll.Contribution{Rate: dec(5)}},
			SocialSecurity: payroll.DeductionRule{Enabled: true, Contribution: payroll.Contribution{Rate: dec(2)}},
			Health:         payroll.DeductionRule{Enabled: true, Contribution: payroll.Contribution{Rate: dec(1)}},
		},
		DeductAdvances: true,
	}
}

// DefaultConfigurationRequest activates monthly payroll on templateID with
// automation on the first of each month.
func DefaultConfigurationRequest(templateID string) payroll.UpsertConfigurationRequest {
	return payroll.UpsertConfigurationRequest{
		Active:              true,
		DefaultTemplateID:   strPtr(templateID),
		PeriodType:          payroll.PeriodTypeMonthly,
		StandardWorkingDays: 22,
		Automation: payroll.Automation{
			Enabled:    true,
			DayOfMonth: 1,
		},
	}
}

// ==========================================
// DEMO DIRECTORY
// ==========================================

type demoEmployee struct {
	code         string
	name         string
	department   string
	compensation *employee.Compensation
	status       employee.EmploymentStatus
	hired        time.Time
}

func demoEmployees() []demoEmployee {
	return []demoEmployee{
		{
			code: "EMP001", name: "Ana Pratama", department: "Kitchen",
			compensation: &employee.Compensation{
				Type:          employee.SalaryTypeMonthly,
				MonthlySalary: dec(6000),
				Allowances: []employee.Allowance{
					{Code: "MEAL", Name: "Meal Allowance", Amount: dec(300)},
					{Code: "TRANSPORT", Name: "Transport Allowance", Amount: dec(200), Taxable: true},
				},
			},
			status: employee.EmploymentStatusActive,
			hired:  time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			code: "EMP002", name: "Budi Santoso", department: "Floor",
			compensation: &employee.Compensation{Type: employee.SalaryTypeHourly, HourlyRate: dec(25)},
			status:       employee.EmploymentStatusActive,
			hired:        time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			code: "EMP003", name: "Citra Lestari", department: "Bar",
			compensation: &employee.Compensation{Type: employee.SalaryTypeDaily, DailyRate: dec(180)},
			status:       employee.EmploymentStatusActive,
			hired:        time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			// No salary configuration yet; payroll generation reports it.
			code: "EMP004", name: "Dewi Anggraini", department: "Floor",
			status: employee.EmploymentStatusActive,
			hired:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			code: "EMP005", name: "Eko Wibowo", department: "Kitchen",
			compensation: &employee.Compensation{Type: employee.SalaryTypeMonthly, MonthlySalary: dec(5000)},
			status:       employee.EmploymentStatusResigned,
			hired:        time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// SeedDemo fills store with a small restaurant: five employees, weekday
// attendance for the month before now, one paid leave, a health plan
// enrollment and an earned commission.
func SeedDemo(store *memory.Store, businessID string, now time.Time) *SeededDataIDs {
	ids := NewSeededDataIDs()

	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfThis.AddDate(0, -1, 0)

	for i, d := range demoEmployees() {
		id := "emp-" + d.code[3:]
		ids.EmployeeIDs[d.code] = id
		store.PutEmployee(employee.Employee{
			ID:               id,
			BusinessID:       businessID,
			EmployeeCode:     d.code,
			FullName:         d.name,
			Department:       strPtr(d.department),
			HireDate:         d.hired,
			EmploymentStatus: d.status,
			Compensation:     d.compensation,
			CreatedAt:        d.hired,
			UpdatedAt:        d.hired,
		})
		if d.status != employee.EmploymentStatusActive {
			continue
		}

		var days []payroll.DailyHours
		for day := start; day.Before(firstOfThis); day = day.AddDate(0, 0, 1) {
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				continue
			}
			hours := dec(8)
			// Fridays run long.
			if day.Weekday() == time.Friday {
				hours = hours.Add(dec(int64(i + 1)))
			}
			days = append(days, payroll.DailyHours{Date: day, Hours: hours})
		}
		store.PutAttendance(businessID, id, days...)
	}

	ana := ids.EmployeeIDs["EMP001"]
	store.PutAbsence(businessID, ana, payroll.Absence{
		Type:  "annual",
		Start: start.AddDate(0, 0, 9),
		End:   start.AddDate(0, 0, 10),
		Paid:  true,
	})
	store.PutBenefit(businessID, ana, payroll.Benefit{
		ID:                   "benefit-health-001",
		Code:                 "HEALTH_PLUS",
		Name:                 "Health Plus",
		EmployeeContribution: payroll.Contribution{Fixed: dec(50)},
		EmployerContribution: payroll.Contribution{Fixed: dec(150)},
	})

	budi := ids.EmployeeIDs["EMP002"]
	ids.CommissionIDs["EMP002"] = "commission-002"
	store.PutCommission(settlement.Commission{
		ID:         "commission-002",
		BusinessID: businessID,
		EmployeeID: budi,
		Amount:     dec(400),
		Deducted:   decimal.Zero,
	})

	return ids
}

package settlement

import (
	"testing"

	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInstrumentRequestValidate(t *testing.T) {
	emp := "emp-1"
	cat := "supplies"

	assert.NoError(t, CreateInstrumentRequest{Kind: KindAdvance, EmployeeID: &emp, Amount: dec("100"), Description: "rent"}.Validate())
	assert.NoError(t, CreateInstrumentRequest{Kind: KindExpense, Category: &cat, Amount: dec("12.50"), Description: "towels"}.Validate())

	err := CreateInstrumentRequest{Kind: KindAdvance, Amount: dec("0"), Description: ""}.Validate()
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := verrs.ToMap()
	assert.Contains(t, fields, "employee_id")
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "description")

	inst := dec("10")
	err = CreateInstrumentRequest{Kind: KindExpense, Category: &cat, Amount: dec("10"), InstallmentAmount: &inst, Description: "x"}.Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "installment_amount")

	err = CreateInstrumentRequest{Kind: "loan", Amount: dec("10"), Description: "x"}.Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "kind")
}

func TestApplyDeductionRequestValidate(t *testing.T) {
	assert.NoError(t, ApplyDeductionRequest{ReferenceType: ReferencePayroll, ReferenceID: "pr-1", Amount: dec("50")}.Validate())

	var verrs validator.ValidationErrors
	err := ApplyDeductionRequest{ReferenceType: ReferenceCommission, ReferenceID: "com-1", Amount: dec("50")}.Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "reference_type")

	err = CommissionDeductionRequest{Amount: dec("0")}.Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "commission_id")
	assert.Contains(t, verrs.ToMap(), "amount")

	assert.NoError(t, CommissionDeductionRequest{CommissionID: "com-1", Amount: dec("50")}.Validate())
}

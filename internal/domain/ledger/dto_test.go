package ledger

import (
	"testing"

	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostTransactionRequestValidate(t *testing.T) {
	ok := PostTransactionRequest{Type: TransactionTypeTip, Amount: dec("50"), PaymentMethod: PaymentMethodCash}
	assert.NoError(t, ok.Validate())

	negAdj := PostTransactionRequest{Type: TransactionTypeAdjustment, Amount: dec("-20"), PaymentMethod: PaymentMethodCash}
	assert.NoError(t, negAdj.Validate())

	cases := map[string]PostTransactionRequest{
		"type":           {Type: "bribe", Amount: dec("1"), PaymentMethod: PaymentMethodCash},
		"payment_method": {Type: TransactionTypeTip, Amount: dec("1"), PaymentMethod: "crypto"},
		"amount":         {Type: TransactionTypeRefund, Amount: dec("-1"), PaymentMethod: PaymentMethodCash},
	}
	for field, req := range cases {
		var verrs validator.ValidationErrors
		require.ErrorAs(t, req.Validate(), &verrs, field)
		assert.Contains(t, verrs.ToMap(), field)
	}

	zeroAdj := PostTransactionRequest{Type: TransactionTypeAdjustment, Amount: dec("0"), PaymentMethod: PaymentMethodCash}
	assert.Error(t, zeroAdj.Validate())
}

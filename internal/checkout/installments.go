package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

// MaxInstallments is the longest plan the gateway offers.
const MaxInstallments = gateway.MaxInstallments

// BuildInstallments returns entries 1..max where entry i charges
// round(total/i) per installment, rounding half away from zero. The entries
// are not adjusted to sum back to total.
func BuildInstallments(totalCents int64, max int) types.InstallmentSchedule {
	if max <= 0 || totalCents < 0 {
		return types.InstallmentSchedule{}
	}
	if max > MaxInstallments {
		max = MaxInstallments
	}
	total := decimal.NewFromInt(totalCents)
	schedule := make(types.InstallmentSchedule, 0, max)
	for i := 1; i <= max; i++ {
		per := total.Div(decimal.NewFromInt(int64(i))).Round(0)
		schedule = append(schedule, types.Installment{Count: i, AmountCents: per.IntPart()})
	}
	return schedule
}

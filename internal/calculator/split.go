package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Share is one participant's portion of a settled order.
type Share struct {
	UserID string
	Amount decimal.Decimal // Positive, what this person owes for their food
}

// SplitEqually divides total evenly among participants, rounded to cents.
// The rounding remainder lands on the orderer's own share so the shares always
// add up to exactly total.
// Based on: amount_per_user = total / len(participants)
func SplitEqually(total decimal.Decimal, ordererID string, participants []string) ([]Share, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cannot be negative")
	}

	ordererIdx := -1
	for i, p := range participants {
		if p == ordererID {
			ordererIdx = i
			break
		}
	}
	if ordererIdx < 0 {
		return nil, fmt.Errorf("orderer %q must be one of the participants", ordererID)
	}

	perUser := total.DivRound(decimal.NewFromInt(int64(len(participants))), 2)

	shares := make([]Share, len(participants))
	assigned := decimal.Zero
	for i, p := range participants {
		shares[i] = Share{UserID: p, Amount: perUser}
		if i != ordererIdx {
			assigned = assigned.Add(perUser)
		}
	}
	shares[ordererIdx].Amount = total.Sub(assigned)

	return shares, nil
}

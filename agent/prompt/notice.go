package prompt

import (
	"errors"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

const CommitmentSavedNotice = "Commitment saved."

const (
	invalidArgumentsNotice = "The commitment was NOT saved because the date or amount was invalid. " +
		"Ask the customer to confirm a specific repayment date and a positive amount, then call the tool again."

	storeFailureNotice = "The commitment was NOT saved because of a technical issue. " +
		"Do not confirm the commitment. Apologise, tell the customer there was a technical problem recording it, and ask them to confirm the date and amount once more."

	unavailableNotice  = "This tool is not available right now. Continue the conversation without calling it."
	parallelCallNotice = "Only one commitment can be saved per call. This call was ignored."
)

// ToolFailureNotice is the tool-role reply the model sees when an invocation fails.
func ToolFailureNotice(err error) string {
	switch {
	case errors.Is(err, contractx.ErrInvalidToolArguments):
		return invalidArgumentsNotice + " (" + err.Error() + ")"
	case errors.Is(err, contractx.ErrStoreWrite):
		return storeFailureNotice
	default:
		return unavailableNotice
	}
}

func ParallelCallNotice() string {
	return parallelCallNotice
}

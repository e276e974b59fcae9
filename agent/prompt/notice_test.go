package prompt

import (
	"fmt"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

func TestToolFailureNotice(t *testing.T) {
	t.Parallel()

	invalid := ToolFailureNotice(fmt.Errorf("%w: amount must be > 0", contractx.ErrInvalidToolArguments))
	if !strings.Contains(invalid, "invalid") || !strings.Contains(invalid, "amount must be > 0") {
		t.Fatalf("unexpected invalid-args notice: %s", invalid)
	}

	store := ToolFailureNotice(fmt.Errorf("%w: unavailable", contractx.ErrStoreWrite))
	if !strings.Contains(store, "technical") || !strings.Contains(store, "Do not confirm") {
		t.Fatalf("unexpected store notice: %s", store)
	}

	other := ToolFailureNotice(contractx.ErrToolUnavailable)
	if !strings.Contains(other, "not available") {
		t.Fatalf("unexpected unavailable notice: %s", other)
	}
}

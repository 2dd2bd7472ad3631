package types

import (
	"testing"
	"time"
)

func TestRenderFieldsIndentation(t *testing.T) {
	fields := []Field{
		{Name: "TransactionType", Value: "Payment"},
		{Name: "Memos", Children: []Field{
			{Name: "Memo", Children: []Field{
				{Name: "MemoData", Value: "hello"},
			}},
		}},
	}

	want := "TransactionType: Payment\nMemos:\n\tMemo:\n\t\tMemoData: hello\n"
	if got := RenderFields(fields); got != want {
		t.Fatalf("unexpected rendering:\n%q\nwant\n%q", got, want)
	}
}

func TestDetailTextFallsBackToSummary(t *testing.T) {
	d := &DecodedTransaction{Summary: []Field{{Name: "Nonce", Value: "1"}}}
	if d.HasDetails() {
		t.Fatal("no details expected")
	}
	if d.DetailText() != "Nonce: 1\n" {
		t.Errorf("unexpected detail text %q", d.DetailText())
	}
}

func TestCountdownAndParseChain(t *testing.T) {
	m := Metadata{RemainingTime: 29999 * time.Millisecond}
	if m.Countdown() != 29 {
		t.Errorf("expected 29, got %d", m.Countdown())
	}

	c, ok := ParseChain(" eth ")
	if !ok || c != ChainETH {
		t.Errorf("expected ETH, got %q %v", c, ok)
	}
	if _, ok := ParseChain("DOGE"); ok {
		t.Error("DOGE is not supported")
	}
}

package query

import "testing"

// ============================================================================
// Test: Alias Rewriting
// ============================================================================

func TestRewriteAliases_ExpandsShortNames(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"counterparty=='ACME Corp'", "counterparty.name=='ACME Corp'"},
		{"book==RATES-NY", "book.bookName==RATES-NY"},
		{"trader==tjones", "traderUser.loginId==tjones"},
		{"inputter==mlee", "inputterUser.loginId==mlee"},
		{"status==NEW", "tradeStatus.tradeStatus==NEW"},
		{"date=ge=2026-01-01", "tradeDate=ge=2026-01-01"},
		{"Counterparty==x", "counterparty.name==x"},
		{"date=ge=2026-01-01;status!=CANCELLED", "tradeDate=ge=2026-01-01;tradeStatus.tradeStatus!=CANCELLED"},
	}

	for _, c := range cases {
		got := RewriteAliases(c.in)
		if got != c.want {
			t.Errorf("RewriteAliases(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRewriteAliases_Idempotent(t *testing.T) {
	in := "counterparty=='ACME Corp';book==RATES-NY;date=ge=2026-01-01"
	once := RewriteAliases(in)
	twice := RewriteAliases(once)
	if once != twice {
		t.Errorf("rewrite not idempotent: %q then %q", once, twice)
	}
}

func TestRewriteAliases_LeavesNonAliasContextsAlone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		// Already part of a path.
		{"counterparty.name==ACME", "counterparty.name==ACME"},
		// Word containing an alias as a suffix.
		{"tradeDate=ge=2026-01-01", "tradeDate=ge=2026-01-01"},
		// No operator follows.
		{"updated==2026-01-01", "updated==2026-01-01"},
		// Alias appearing as a value, not a field.
		{"tradeType==book", "tradeType==book"},
		{"", ""},
	}

	for _, c := range cases {
		got := RewriteAliases(c.in)
		if got != c.want {
			t.Errorf("RewriteAliases(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// ============================================================================
// Test: Filter Parsing
// ============================================================================

func TestParseFilter_SingleComparison(t *testing.T) {
	conds, err := ParseFilter("tradeDate=ge=2026-01-01")
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if len(conds) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conds))
	}
	c := conds[0]
	if c.Field != "tradeDate" || c.Operator != "=ge=" || c.Value != "2026-01-01" {
		t.Errorf("unexpected condition: %+v", c)
	}
}

func TestParseFilter_ConjunctionAndQuotes(t *testing.T) {
	conds, err := ParseFilter(`counterparty.name=='ACME Corp';tradeStatus.tradeStatus!=CANCELLED`)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}
	if conds[0].Value != "ACME Corp" {
		t.Errorf("expected quoted value unwrapped, got %q", conds[0].Value)
	}
	if conds[1].Operator != "!=" {
		t.Errorf("expected != operator, got %q", conds[1].Operator)
	}
}

func TestParseFilter_QuotedSemicolonStaysInValue(t *testing.T) {
	conds, err := ParseFilter(`counterparty.name=='A;B';version==2`)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}
	if conds[0].Value != "A;B" {
		t.Errorf("expected value %q, got %q", "A;B", conds[0].Value)
	}
}

func TestParseFilter_QuotedOperatorStaysInValue(t *testing.T) {
	conds, err := ParseFilter(`utiCode=='a=gt=b'`)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if len(conds) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(conds))
	}
	c := conds[0]
	if c.Field != "utiCode" || c.Operator != "==" || c.Value != "a=gt=b" {
		t.Errorf("unexpected condition: %+v", c)
	}
}

func TestParseFilter_Empty(t *testing.T) {
	conds, err := ParseFilter("   ")
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	if len(conds) != 0 {
		t.Errorf("expected no conditions, got %d", len(conds))
	}
}

func TestParseFilter_Malformed(t *testing.T) {
	for _, in := range []string{
		"tradeDate",
		"==NEW",
		"status==",
		"a==b;;c==d",
	} {
		if _, err := ParseFilter(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

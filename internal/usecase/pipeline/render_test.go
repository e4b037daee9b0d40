package pipeline

import (
	"strings"
	"testing"
)

func TestRenderSummaryBlock(t *testing.T) {
	block := renderSummaryBlock("First paragraph.\n\nSecond line one\nSecond line two")

	if !strings.HasPrefix(block, "<hr><h2>Meeting Summary</h2>") {
		t.Fatalf("block does not start with summary heading: %q", block)
	}
	if !strings.Contains(block, "<p>First paragraph.</p>") {
		t.Errorf("missing first paragraph: %q", block)
	}
	if !strings.Contains(block, "<p>Second line one<br>Second line two</p>") {
		t.Errorf("missing line-broken paragraph: %q", block)
	}
}

func TestRenderSummaryBlockEscapesHTML(t *testing.T) {
	block := renderSummaryBlock("Action: review <script>alert(1)</script> & follow up")

	if strings.Contains(block, "<script>") {
		t.Fatalf("summary text was not escaped: %q", block)
	}
	if !strings.Contains(block, "&lt;script&gt;") || !strings.Contains(block, "&amp;") {
		t.Errorf("expected escaped entities in block: %q", block)
	}
}

func TestAppendSummaryToBodyPreservesExisting(t *testing.T) {
	existing := "<html><body><p>Original agenda</p></body></html>"
	out := appendSummaryToBody(existing, "Wrap-up notes")

	if !strings.HasPrefix(out, existing) {
		t.Fatalf("existing body was not preserved: %q", out)
	}
	if !strings.Contains(out, "<h2>Meeting Summary</h2>") {
		t.Errorf("summary block missing: %q", out)
	}
}

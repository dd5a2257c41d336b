// Package diff computes edit scripts between two texts using an LCS-based
// algorithm and applies them back. Functions here are total: any pair of
// well-formed strings produces a valid result.
package diff

import "strings"

// Kind classifies a single item of an edit script.
type Kind string

// Edit script item kinds.
const (
	Equal   Kind = "equal"
	Insert  Kind = "insert"
	Delete  Kind = "delete"
	Replace Kind = "replace"
)

// Granularity records which unit the script was computed over.
type Granularity string

// Diff granularities.
const (
	GranularityChar Granularity = "char"
	GranularityLine Granularity = "line"
)

// Item is one step of an edit script. An ordered sequence of items fully
// reconstructs either side: OriginalText of non-insert items concatenates to
// the original, NewText of non-delete items concatenates to the updated text.
type Item struct {
	Kind         Kind   `json:"kind"`
	OriginalText string `json:"original_text"`
	NewText      string `json:"new_text"`
	Index        int    `json:"index"`
}

// Result is the outcome of a diff computation.
type Result struct {
	Items       []Item      `json:"items"`
	HasChanges  bool        `json:"has_changes"`
	Granularity Granularity `json:"granularity"`
}

// maxCharLines is the line count above which diffing switches to line
// granularity to bound the O(n*m) LCS cost on large documents.
const maxCharLines = 3

// Compute returns the edit script transforming original into updated.
// Inputs with more than maxCharLines lines, or whose line counts differ by
// more than one, are diffed line by line; everything else character by
// character. Adjacent items of the same kind are merged, and a delete run
// immediately followed by an insert run is folded into a single replace.
func Compute(original, updated string) Result {
	if original == updated {
		return Result{
			Items:       []Item{{Kind: Equal, OriginalText: original, NewText: updated}},
			HasChanges:  false,
			Granularity: granularityFor(original, updated),
		}
	}

	gran := granularityFor(original, updated)
	var a, b []string
	if gran == GranularityLine {
		a, b = splitLines(original), splitLines(updated)
	} else {
		a, b = splitChars(original), splitChars(updated)
	}

	items := coalesce(backtrack(a, b))
	hasChanges := len(items) != 1 || items[0].Kind != Equal
	return Result{Items: items, HasChanges: hasChanges, Granularity: gran}
}

// Apply reconstructs the updated text from original and an edit script by
// concatenating the new text of every non-delete item in sequence order.
func Apply(original string, items []Item) string {
	var sb strings.Builder
	sb.Grow(len(original))
	for _, it := range items {
		if it.Kind == Delete {
			continue
		}
		sb.WriteString(it.NewText)
	}
	return sb.String()
}

func granularityFor(a, b string) Granularity {
	la, lb := lineCount(a), lineCount(b)
	if la > maxCharLines || lb > maxCharLines {
		return GranularityLine
	}
	delta := la - lb
	if delta < 0 {
		delta = -delta
	}
	if delta > 1 {
		return GranularityLine
	}
	return GranularityChar
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

// splitLines breaks s after every newline, keeping the newline attached so
// concatenating the pieces reproduces s exactly.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func splitChars(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

type op struct {
	kind Kind
	text string
}

// backtrack fills the LCS length table for a and b, then walks it from the
// bottom-right corner emitting equal/insert/delete ops in forward order.
func backtrack(a, b []string) []op {
	n, m := len(a), len(b)
	stride := m + 1
	dp := make([]int, (n+1)*stride)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i*stride+j] = dp[(i-1)*stride+j-1] + 1
			case dp[(i-1)*stride+j] >= dp[i*stride+j-1]:
				dp[i*stride+j] = dp[(i-1)*stride+j]
			default:
				dp[i*stride+j] = dp[i*stride+j-1]
			}
		}
	}

	rev := make([]op, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			rev = append(rev, op{kind: Equal, text: a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || dp[i*stride+j-1] >= dp[(i-1)*stride+j]):
			rev = append(rev, op{kind: Insert, text: b[j-1]})
			j--
		default:
			rev = append(rev, op{kind: Delete, text: a[i-1]})
			i--
		}
	}

	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return rev
}

// coalesce merges adjacent ops of the same kind into runs, folds each
// delete run followed by an insert run into a replace, and assigns
// sequence indexes.
func coalesce(ops []op) []Item {
	var runs []Item
	for start := 0; start < len(ops); {
		end := start
		for end < len(ops) && ops[end].kind == ops[start].kind {
			end++
		}
		var sb strings.Builder
		for k := start; k < end; k++ {
			sb.WriteString(ops[k].text)
		}
		text := sb.String()

		it := Item{Kind: ops[start].kind}
		switch it.Kind {
		case Equal:
			it.OriginalText, it.NewText = text, text
		case Insert:
			it.NewText = text
		case Delete:
			it.OriginalText = text
		}
		runs = append(runs, it)
		start = end
	}

	items := make([]Item, 0, len(runs))
	for k := 0; k < len(runs); k++ {
		if runs[k].Kind == Delete && k+1 < len(runs) && runs[k+1].Kind == Insert {
			items = append(items, Item{
				Kind:         Replace,
				OriginalText: runs[k].OriginalText,
				NewText:      runs[k+1].NewText,
			})
			k++
			continue
		}
		items = append(items, runs[k])
	}
	for i := range items {
		items[i].Index = i
	}
	return items
}

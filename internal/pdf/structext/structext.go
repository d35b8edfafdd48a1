// Package structext partitions each page's plain text into header, body,
// and footer by cross-page frequency analysis of the first and last few
// lines.
package structext

import (
	"strings"
)

// headerSlots and footerSlots bound how many leading/trailing lines per
// page are considered candidate header/footer lines.
const (
	headerSlots    = 3
	footerSlots    = 3
	classifyRatio  = 0.60
	minPagesForRun = 3
)

// Page is the structured-text result for a single page.
type Page struct {
	Number int
	Header string
	Body   string
	Footer string
}

// Process partitions texts (one plain-text string per page, in page order)
// into header/body/footer triples of the same length. Pages fewer than
// minPagesForRun yield an empty header and footer for every page: there is
// not enough cross-page evidence to classify anything.
func Process(texts []string) []Page {
	out := make([]Page, len(texts))
	lines := make([][]string, len(texts))
	for i, text := range texts {
		out[i].Number = i + 1
		lines[i] = splitLines(text)
	}

	if len(texts) < minPagesForRun {
		for i, text := range texts {
			out[i].Body = text
		}
		return out
	}

	headerClassified := classifySlots(lines, headerSlots, true)
	footerClassified := classifySlots(lines, footerSlots, false)

	for i, pageLines := range lines {
		headerCount := countStripped(pageLines, headerClassified, true)
		footerCount := countStripped(pageLines, footerClassified, false)

		if headerCount+footerCount > len(pageLines) {
			// Overlapping header/footer windows on a very short page;
			// keep header but drop footer classification for it.
			footerCount = 0
			if headerCount > len(pageLines) {
				headerCount = len(pageLines)
			}
		}

		headerLines := pageLines[:headerCount]
		bodyLines := pageLines[headerCount : len(pageLines)-footerCount]
		footerLines := pageLines[len(pageLines)-footerCount:]

		out[i].Header = strings.Join(headerLines, "\n")
		out[i].Body = strings.Join(bodyLines, "\n")
		out[i].Footer = strings.Join(footerLines, "\n")
	}

	return out
}

// classifySlots tallies the normalized line occupying each candidate slot
// across all pages and reports, per slot, whether its majority normalized
// form clears the classification threshold.
func classifySlots(lines [][]string, slots int, fromStart bool) []bool {
	classified := make([]bool, slots)

	for slot := 0; slot < slots; slot++ {
		tally := make(map[string]int)
		total := 0

		for _, pageLines := range lines {
			line, ok := slotLine(pageLines, slot, fromStart)
			if !ok {
				continue
			}
			total++
			tally[normalize(line)]++
		}

		if total == 0 {
			continue
		}
		best := 0
		for _, count := range tally {
			if count > best {
				best = count
			}
		}
		if float64(best)/float64(total) >= classifyRatio {
			classified[slot] = true
		}
	}

	return classified
}

func slotLine(pageLines []string, slot int, fromStart bool) (string, bool) {
	if fromStart {
		if slot >= len(pageLines) {
			return "", false
		}
		return pageLines[slot], true
	}
	idx := len(pageLines) - 1 - slot
	if idx < 0 {
		return "", false
	}
	return pageLines[idx], true
}

// countStripped returns how many leading (or trailing) lines of pageLines
// should be stripped, stopping at the first slot whose line isn't
// classified (classification must hold contiguously from the edge in).
func countStripped(pageLines []string, classified []bool, fromStart bool) int {
	count := 0
	for slot := 0; slot < len(classified); slot++ {
		if !classified[slot] {
			break
		}
		if _, ok := slotLine(pageLines, slot, fromStart); !ok {
			break
		}
		count++
	}
	return count
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	rawLines := strings.Split(text, "\n")
	lines := make([]string, len(rawLines))
	for i, l := range rawLines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// normalize collapses a candidate line to a comparable form: runs of ASCII
// digits become a single '#' sentinel, internal whitespace collapses to a
// single space, and the result is trimmed.
func normalize(line string) string {
	var b strings.Builder
	inDigits := false
	for _, r := range line {
		switch {
		case r >= '0' && r <= '9':
			if !inDigits {
				b.WriteByte('#')
				inDigits = true
			}
		case r == ' ' || r == '\t':
			inDigits = false
			b.WriteByte(' ')
		default:
			inDigits = false
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

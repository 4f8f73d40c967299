// Package pages parses the page-marker wire format produced by the OCR
// collaborators and aligns the resulting per-source page streams into a
// single page-indexed corpus.
package pages

import (
	"bufio"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jrennert/insurancedocflow/internal/models"
)

// The OCR collaborators emit one combined text object per source, using a
// small header grammar before each page's text:
//
//	----------
//	PAGE 7
//	----------
//	<free text until the next header or end of stream>
//
// The delimiter is a line of three or more dashes; the marker line is the
// literal word PAGE followed by a positive integer.
var (
	delimiterRe  = regexp.MustCompile(`^-{3,}$`)
	pageMarkerRe = regexp.MustCompile(`^PAGE\s+(\d+)$`)
)

// ParseStream parses one source's combined text into SourcedPages. Duplicate
// markers for the same page number keep the first occurrence only; later
// duplicates are dropped so a page is never double-counted. A stream with no
// markers yields zero pages. Text before the first marker is ignored.
func ParseStream(source models.SourceTag, raw string) []models.SourcedPage {
	var (
		pages   []models.SourcedPage
		seen    = map[int]bool{}
		current = -1 // page currently being accumulated, -1 = none
		skip    bool // true while accumulating a duplicate page's text
		body    strings.Builder
	)

	flush := func() {
		if current < 0 || skip {
			return
		}
		pages = append(pages, models.SourcedPage{
			PageNumber: current,
			Source:     source,
			Text:       strings.TrimSpace(body.String()),
		})
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// One line of lookahead is enough to recognize the three-line header.
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if delimiterRe.MatchString(line) && i+2 < len(lines) {
			marker := strings.TrimSpace(lines[i+1])
			closer := strings.TrimRight(lines[i+2], " \t")
			if m := pageMarkerRe.FindStringSubmatch(marker); m != nil && delimiterRe.MatchString(closer) {
				num, err := strconv.Atoi(m[1])
				if err == nil {
					flush()
					body.Reset()
					if seen[num] {
						slog.Warn("Duplicate page marker in OCR stream; keeping first occurrence.",
							"source", string(source), "pageNumber", num)
						current, skip = num, true
					} else {
						seen[num] = true
						current, skip = num, false
					}
					i += 2
					continue
				}
			}
		}
		if current >= 0 {
			body.WriteString(lines[i])
			body.WriteByte('\n')
		}
	}
	flush()
	return pages
}

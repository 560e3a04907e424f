package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	introProofsFilePattern = regexp.MustCompile(`IntroToProofs(Fall|Spring|Summer)(\d{4})`)
	semesterFilePattern    = regexp.MustCompile(`^(\d{4})(fall|spring|summer)`)
)

// ImportedEvent is one row of a legacy lecture table.
type ImportedEvent struct {
	Date     string `json:"date"`
	Speaker  string `json:"speaker"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// ImportResult describes one written events file.
type ImportResult struct {
	Source string
	Key    string
	Output string
	Events int
}

// SemesterKeyFromFilename maps legacy page names to semester keys:
// "2024fall.html" is "2024_fall", "IntroToProofsFall2024.html" is
// "2024_introproofs_fall".
func SemesterKeyFromFilename(name string) (string, bool) {
	name = strings.TrimSuffix(filepath.Base(name), ".html")

	if strings.Contains(name, "IntroToProofs") {
		if m := introProofsFilePattern.FindStringSubmatch(name); m != nil {
			return m[2] + "_introproofs_" + strings.ToLower(m[1]), true
		}
	}
	if m := semesterFilePattern.FindStringSubmatch(name); m != nil {
		return m[1] + "_" + m[2], true
	}
	return "", false
}

// ParseEventsHTML reads the first table of a legacy lecture page. Columns are
// date, speaker, title and abstract; rows without a date or speaker are skipped.
func ParseEventsHTML(r io.Reader) ([]ImportedEvent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	table := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Table })
	if table == nil {
		return nil, nil
	}

	// The parser puts every row without a thead into a tbody, so header rows
	// are recognized by their th cells or their "Date" label.
	var rows []*html.Node
	for _, body := range findAll(table, atom.Tbody) {
		rows = append(rows, findAll(body, atom.Tr)...)
	}

	var events []ImportedEvent
	for i, row := range rows {
		cells := findAll(row, atom.Td)
		if len(cells) < 4 {
			continue
		}
		if i == 0 && strings.EqualFold(cellText(cells[0], nil), "date") {
			continue
		}

		event := ImportedEvent{
			Date:     cellText(cells[0], nil),
			Speaker:  cellText(cells[1], divWithClass("title")),
			Title:    cellText(cells[2], func(n *html.Node) bool { return n.DataAtom == atom.A }),
			Abstract: cellText(cells[3], divWithClass("abstract")),
		}

		if isBlankCell(event.Date) || isBlankCell(event.Speaker) {
			continue
		}
		if isBlankCell(event.Title) {
			event.Title = ""
		}
		if isBlankCell(event.Abstract) {
			event.Abstract = ""
		}
		events = append(events, event)
	}
	return events, nil
}

// ImportEventsDir converts every legacy page in dir (names containing "index"
// excluded) into outDir/{key}_events.json.
func ImportEventsDir(dir, outDir string, log *zap.Logger) ([]ImportResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var results []ImportResult
	for _, file := range files {
		if strings.Contains(strings.ToLower(filepath.Base(file)), "index") {
			continue
		}

		key, ok := SemesterKeyFromFilename(file)
		if !ok {
			log.Warn("Could not parse year/season from file name", zap.String("file", file))
			continue
		}

		events, err := importFile(file)
		if err != nil {
			return results, err
		}

		out := filepath.Join(outDir, key+"_events.json")
		if err := writeEventsJSON(out, events); err != nil {
			return results, err
		}

		log.Info("Imported events", zap.String("file", file), zap.String("semester", key), zap.Int("events", len(events)))
		results = append(results, ImportResult{Source: file, Key: key, Output: out, Events: len(events)})
	}
	return results, nil
}

func importFile(path string) ([]ImportedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	events, err := ParseEventsHTML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func writeEventsJSON(path string, events []ImportedEvent) error {
	if events == nil {
		events = []ImportedEvent{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects descendants with the given tag, not descending into nested
// tables.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == a {
			out = append(out, c)
		}
		if c.DataAtom != atom.Table {
			out = append(out, findAll(c, a)...)
		}
	}
	return out
}

func divWithClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.DataAtom != atom.Div {
			return false
		}
		for _, attr := range n.Attr {
			if attr.Key == "class" {
				for _, c := range strings.Fields(attr.Val) {
					if c == class {
						return true
					}
				}
			}
		}
		return false
	}
}

// cellText returns the collapsed text of the first descendant matching
// prefer, or of the whole cell.
func cellText(cell *html.Node, prefer func(*html.Node) bool) string {
	node := cell
	if prefer != nil {
		if found := findFirst(cell, prefer); found != nil && found != cell {
			node = found
		}
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	// strings.Fields also splits on U+00A0, so &nbsp; cells come out empty.
	return strings.Join(strings.Fields(b.String()), " ")
}

func isBlankCell(s string) bool {
	return s == "" || s == PlaceholderNBSP
}

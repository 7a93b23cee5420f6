// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string. Markdown is what tool calls return to
// the agent host; table is the CLI default.
package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/aggregate"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// Format constants matching --format flag and responseFormat values.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatMD       = "md"
)

// Messages shared with list rendering.
const (
	EmptyMessage   = "The response was empty..."
	PartialMessage = "Not all pages were successfully fetched, collected data:"
	separator      = "--------------------"
)

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatMarkdown, FormatMD:
		return renderDoc(w, result, true)
	default:
		return renderDoc(w, result, false)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// Markdown returns the markdown rendering of result.
func Markdown(result *model.Result) string {
	var buf bytes.Buffer
	if err := renderDoc(&buf, result, true); err != nil {
		return err.Error()
	}
	return strings.TrimRight(buf.String(), "\n")
}

// JSON returns the compact JSON encoding of result.Data.
func JSON(result *model.Result) (string, error) {
	b, err := json.Marshal(result.Data)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", result.Kind, err)
	}
	return string(b), nil
}

// FormatList joins items with dashed separators. An empty list yields
// EmptyMessage; an incomplete one is prefixed with PartialMessage.
func FormatList(items []string, allPagesFetched bool) string {
	if len(items) == 0 {
		return EmptyMessage
	}
	var sb strings.Builder
	if !allPagesFetched {
		sb.WriteString(PartialMessage + "\n")
	}
	sb.WriteString(separator)
	for _, it := range items {
		sb.WriteString("\n" + it + "\n" + separator)
	}
	return sb.String()
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ─── Documents ────────────────────────────────────────────────────────────────

// renderDoc renders result as tables; md selects markdown tables and
// headings instead of boxed terminal tables.
func renderDoc(w io.Writer, result *model.Result, md bool) error {
	switch d := result.Data.(type) {
	case *model.Location:
		renderLocation(w, d, md)
	case []model.Location:
		renderLocations(w, d, result.Stats.AllPagesFetched, md)
	case *model.InsightsReport:
		renderInsights(w, d, md)
	case []model.InsightsReport:
		for i := range d {
			if i > 0 {
				fmt.Fprintln(w)
			}
			renderInsights(w, &d[i], md)
		}
	case *model.RatingsSummary:
		renderRatings(w, d, md)
	case []model.Review:
		renderReviews(w, d, result.Stats.AllPagesFetched, md)
	case []model.Keyword:
		renderKeywords(w, d, md)
	case model.CacheInfo:
		renderCacheInfo(w, d, md)
	case []model.AggregatedPeriod:
		renderPeriods(w, d, md)
	default:
		return renderJSON(w, result)
	}
	if md {
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "\n> ⚠ %s\n", warn)
		}
	}
	return nil
}

func heading(w io.Writer, md bool, level int, text string) {
	if md {
		fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level), text)
		return
	}
	fmt.Fprintf(w, "%s\n\n", text)
}

// newTable returns a tablewriter configured as a boxed terminal table or as
// a GitHub-flavoured markdown table.
func newTable(w io.Writer, header []string, md bool) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	if md {
		tw.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tw.SetCenterSeparator("|")
	} else {
		tw.SetBorder(true)
		tw.SetRowLine(false)
	}
	return tw
}

// ─── Locations ────────────────────────────────────────────────────────────────

func renderLocation(w io.Writer, l *model.Location, md bool) {
	heading(w, md, 2, fmt.Sprintf("%s (store %s)", l.DisplayName(), l.StoreID))
	tw := newTable(w, []string{"FIELD", "VALUE"}, md)
	tw.SetColWidth(80)
	rows := [][]string{
		{"Store ID", l.StoreID},
		{"Name", l.Name},
		{"Active", yesNo(l.IsActive)},
		{"Address", joinNonEmpty(", ", l.Address.Street, l.Address.Zip+" "+l.Address.City, l.Address.Country)},
		{"Phone", l.Contact.Phone},
		{"Email", l.Contact.Email},
		{"Homepage", l.Contact.Homepage},
	}
	if l.PermanentlyClosed {
		rows = append(rows, []string{"Permanently closed", "yes"})
	}
	if l.Location != nil {
		rows = append(rows, []string{"Coordinates", fmt.Sprintf("%.6f, %.6f", l.Location.Lat, l.Location.Lon)})
	}
	for _, r := range rows {
		if strings.TrimSpace(r[1]) == "" {
			continue
		}
		tw.Append([]string{r[0], mdEscape(r[1])})
	}
	tw.Render()
}

func renderLocations(w io.Writer, locs []model.Location, complete bool, md bool) {
	if md {
		items := make([]string, len(locs))
		for i, l := range locs {
			items[i] = locationLine(l)
		}
		fmt.Fprintln(w, FormatList(items, complete))
		return
	}
	if len(locs) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		return
	}
	if !complete {
		fmt.Fprintln(w, PartialMessage)
	}
	tw := newTable(w, []string{"STORE ID", "NAME", "CITY", "ACTIVE"}, false)
	for _, l := range locs {
		tw.Append([]string{l.StoreID, truncate(l.DisplayName(), 50), l.Address.City, yesNo(l.IsActive)})
	}
	tw.Render()
}

func locationLine(l model.Location) string {
	parts := []string{
		"storeId: " + l.StoreID,
		"name: " + l.DisplayName(),
	}
	if addr := joinNonEmpty(", ", l.Address.Street, l.Address.City, l.Address.Country); addr != "" {
		parts = append(parts, "address: "+addr)
	}
	parts = append(parts, "active: "+yesNo(l.IsActive))
	return strings.Join(parts, "\n")
}

// ─── Insights ─────────────────────────────────────────────────────────────────

func renderInsights(w io.Writer, r *model.InsightsReport, md bool) {
	title := fmt.Sprintf("%s insights %s..%s", titleCase(r.Network), r.Range.From, r.Range.To)
	if r.StoreID != "" {
		title += " (store " + r.StoreID + ")"
	}
	heading(w, md, 2, title)
	fmt.Fprintf(w, "Aggregation: %s\n\n", r.Aggregation)

	if len(r.Periods) == 0 {
		fmt.Fprintln(w, "No metric data for this range.")
		return
	}
	renderPeriods(w, r.Periods, md)

	if len(r.Trends) > 0 {
		fmt.Fprintln(w)
		heading(w, md, 3, "Trend")
		tw := newTable(w, []string{"METRIC", "DIRECTION", "SLOPE/DAY", "R²"}, md)
		for _, t := range r.Trends {
			tw.Append([]string{t.Metric, t.Direction, strconv.FormatFloat(t.SlopePerDay, 'f', 2, 64), strconv.FormatFloat(t.R2, 'f', 2, 64)})
		}
		tw.Render()
	}

	if len(r.Comparison) > 0 {
		fmt.Fprintln(w)
		title := "Compared with " + strings.ReplaceAll(r.CompareWith, "_", " ")
		if r.PriorRange != nil {
			title += fmt.Sprintf(" (%s..%s)", r.PriorRange.From, r.PriorRange.To)
		}
		if !hasPeriodLabels(r.Comparison) {
			title += ", whole-range totals"
		}
		heading(w, md, 3, title)
		renderComparison(w, r.Comparison, md)
	}
}

func hasPeriodLabels(cs []model.ComparisonResult) bool {
	for _, c := range cs {
		if c.PeriodLabel != "" {
			return true
		}
	}
	return false
}

func renderComparison(w io.Writer, cs []model.ComparisonResult, md bool) {
	withPeriod := hasPeriodLabels(cs)
	header := []string{"METRIC", "CURRENT", "PRIOR", "DELTA", "CHANGE"}
	if withPeriod {
		header = append([]string{"PERIOD"}, header...)
	}
	tw := newTable(w, header, md)
	for _, c := range cs {
		row := []string{c.Metric, util.FormatValue(c.Current), util.FormatValue(c.Prior), signed(c.Delta), c.DeltaPercent}
		if withPeriod {
			row = append([]string{c.PeriodLabel}, row...)
		}
		tw.Append(row)
	}
	tw.Render()
}

// renderPeriods renders one row per period and one column per metric,
// followed by a totals row when there is more than one period.
func renderPeriods(w io.Writer, periods []model.AggregatedPeriod, md bool) {
	keys := aggregate.MetricKeys(periods)
	tw := newTable(w, append([]string{"PERIOD"}, keys...), md)
	totals := map[string]float64{}
	for _, p := range periods {
		row := []string{p.Label}
		for _, k := range keys {
			row = append(row, util.FormatValue(p.Metrics[k]))
			totals[k] += p.Metrics[k]
		}
		tw.Append(row)
	}
	if len(periods) > 1 {
		row := []string{"Total"}
		for _, k := range keys {
			row = append(row, util.FormatValue(totals[k]))
		}
		tw.Append(row)
	}
	tw.Render()
}

// ─── Ratings & reviews ────────────────────────────────────────────────────────

func renderRatings(w io.Writer, s *model.RatingsSummary, md bool) {
	title := fmt.Sprintf("%s ratings %s..%s", titleCase(s.Network), s.Range.From, s.Range.To)
	if s.StoreID != "" {
		title += " (store " + s.StoreID + ")"
	}
	heading(w, md, 2, title)
	if s.Count == 0 {
		fmt.Fprintln(w, "No ratings in this range.")
		return
	}
	tw := newTable(w, []string{"FIELD", "VALUE"}, md)
	tw.Append([]string{"Reviews", strconv.Itoa(s.Count)})
	tw.Append([]string{"Average", strconv.FormatFloat(s.Average, 'f', 2, 64)})
	tw.Append([]string{"Median", util.FormatValue(s.Median)})
	tw.Append([]string{"With comment", strconv.Itoa(s.WithComment)})
	tw.Append([]string{"Replied", fmt.Sprintf("%d (%.1f%%)", s.Replied, s.ReplyRate)})
	tw.Render()

	fmt.Fprintln(w)
	dist := newTable(w, []string{"STARS", "COUNT"}, md)
	stars := make([]int, 0, len(s.Distribution))
	for k := range s.Distribution {
		stars = append(stars, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(stars)))
	for _, k := range stars {
		dist.Append([]string{strings.Repeat("★", k), strconv.Itoa(s.Distribution[k])})
	}
	dist.Render()
}

func renderReviews(w io.Writer, rs []model.Review, complete bool, md bool) {
	if md {
		items := make([]string, len(rs))
		for i, r := range rs {
			items[i] = reviewLine(r)
		}
		fmt.Fprintln(w, FormatList(items, complete))
		return
	}
	if len(rs) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		return
	}
	if !complete {
		fmt.Fprintln(w, PartialMessage)
	}
	tw := newTable(w, []string{"DATE", "STORE ID", "RATING", "COMMENT", "REPLIED"}, false)
	for _, r := range rs {
		tw.Append([]string{r.Date, r.StoreID, strconv.Itoa(r.Rating), truncate(r.Comment, 60), yesNo(r.Reply != "")})
	}
	tw.Render()
}

func reviewLine(r model.Review) string {
	lines := []string{fmt.Sprintf("%s  %s  store %s", strings.Repeat("★", clamp(r.Rating, 0, 5)), r.Date, r.StoreID)}
	if r.Comment != "" {
		lines = append(lines, "comment: "+r.Comment)
	}
	if r.Reply != "" {
		lines = append(lines, "reply: "+r.Reply)
	}
	return strings.Join(lines, "\n")
}

// ─── Keywords ─────────────────────────────────────────────────────────────────

func renderKeywords(w io.Writer, kws []model.Keyword, md bool) {
	if len(kws) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		return
	}
	tw := newTable(w, []string{"#", "KEYWORD", "IMPRESSIONS", "LOCATIONS"}, md)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for i, k := range kws {
		locs := ""
		if k.Locations > 0 {
			locs = strconv.Itoa(k.Locations)
		}
		tw.Append([]string{strconv.Itoa(i + 1), mdEscape(k.Keyword), util.FormatValue(k.Value), locs})
	}
	tw.Render()
}

// ─── Cache ────────────────────────────────────────────────────────────────────

func renderCacheInfo(w io.Writer, c model.CacheInfo, md bool) {
	heading(w, md, 2, "Locations cache")
	if !c.Cached {
		fmt.Fprintf(w, "Empty (TTL %s).\n", time.Duration(c.TTLSeconds*float64(time.Second)))
		return
	}
	tw := newTable(w, []string{"FIELD", "VALUE"}, md)
	tw.Append([]string{"Locations", strconv.Itoa(c.Size)})
	tw.Append([]string{"Age", (time.Duration(c.AgeSeconds) * time.Second).String()})
	tw.Append([]string{"TTL", time.Duration(c.TTLSeconds * float64(time.Second)).String()})
	tw.Append([]string{"All pages fetched", yesNo(c.AllPagesFetched)})
	tw.Render()
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func signed(v float64) string {
	s := util.FormatValue(v)
	if v > 0 {
		return "+" + s
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

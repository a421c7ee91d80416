package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/domain/security"
)

// ToMarkdown renders the weekly alert summary as Markdown.
func ToMarkdown(alerts []alerting.Alert, weekStart string, attachments map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# [Cost x Security] Weekly correlation alerts (week of %s)\n\n", weekStart)
	if len(alerts) == 0 {
		b.WriteString("No correlated cost/security alerts this week.\n")
	} else {
		b.WriteString("| Account | Region | Service | Delta % | Findings | Rules |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
		for _, alert := range alerts {
			fmt.Fprintf(&b, "| %s | %s | %s | %.1f%% | %s | %s |\n",
				alert.AccountID,
				alert.Region,
				alert.Service,
				alert.CostDeltaPct,
				stringifySeverityCounts(alert.SeverityCounts, ", "),
				orNA(strings.Join(alert.MatchedRules, ", ")),
			)
		}
	}
	if len(attachments) > 0 {
		b.WriteString("\n## Attachments\n")
		for _, name := range sortedKeys(attachments) {
			fmt.Fprintf(&b, "- %s: %s\n", name, attachments[name])
		}
	}
	return b.String()
}

// ToHTML renders the weekly alert summary as a standalone HTML fragment.
func ToHTML(alerts []alerting.Alert, weekStart string, attachments map[string]string) string {
	var rows strings.Builder
	for _, alert := range alerts {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%.1f%%</td><td>%s</td><td>%s</td></tr>",
			alert.AccountID,
			alert.Region,
			alert.Service,
			alert.CostDeltaPct,
			stringifySeverityCounts(alert.SeverityCounts, ", "),
			orNA(strings.Join(alert.MatchedRules, ", ")),
		)
	}
	if rows.Len() == 0 {
		rows.WriteString("<tr><td colspan='6'>No correlated cost/security alerts this week.</td></tr>")
	}

	var attachmentSection strings.Builder
	if len(attachments) > 0 {
		attachmentSection.WriteString("<h2>Attachments</h2><ul>")
		for _, name := range sortedKeys(attachments) {
			fmt.Fprintf(&attachmentSection, "<li>%s: <a href='%s'>%s</a></li>", name, attachments[name], attachments[name])
		}
		attachmentSection.WriteString("</ul>")
	}

	return fmt.Sprintf(
		"<h1>[Cost x Security] Weekly correlation alerts (week of %s)</h1>"+
			"<table><thead><tr><th>Account</th><th>Region</th><th>Service</th><th>Delta %%</th><th>Findings</th><th>Rules</th></tr></thead>"+
			"<tbody>%s</tbody></table>%s",
		weekStart, rows.String(), attachmentSection.String(),
	)
}

// ToCSV renders alert rows for downstream analytics, header included.
func ToCSV(alerts []alerting.Alert) string {
	lines := []string{"account_id,region,service,cost_delta_pct,cost_anomaly_score,sec_counts,matched_rules"}
	for _, alert := range alerts {
		lines = append(lines, strings.Join([]string{
			alert.AccountID,
			alert.Region,
			alert.Service,
			fmt.Sprintf("%.2f", alert.CostDeltaPct),
			fmt.Sprintf("%.2f", alert.AnomalyScore),
			fmt.Sprintf("%q", stringifySeverityCounts(alert.SeverityCounts, "|")),
			fmt.Sprintf("%q", strings.Join(alert.MatchedRules, "|")),
		}, ","))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Redact masks sensitive values before they reach logs.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) < 6 {
		return "***"
	}
	return value[:3] + "***" + value[len(value)-3:]
}

// stringifySeverityCounts renders counts ordered from CRITICAL down to INFO.
func stringifySeverityCounts(counts map[security.Severity]int, delimiter string) string {
	if len(counts) == 0 {
		return "N/A"
	}
	levels := security.Levels()
	parts := make([]string, 0, len(counts))
	for i := len(levels) - 1; i >= 0; i-- {
		if count, ok := counts[levels[i]]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", levels[i], count))
		}
	}
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, delimiter)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

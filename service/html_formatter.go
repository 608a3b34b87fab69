package service

import (
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/constants"
	"github.com/ludo-technologies/fixeval/internal/version"
)

// HTMLData represents the data for HTML template
type HTMLData struct {
	Title       string
	GeneratedAt string
	Version     string
	Report      *domain.ReportModel
}

var htmlFuncMap = template.FuncMap{
	"overall":     FormatOverallScore,
	"metricScore": FormatMetricScore,
	"rawScore":    FormatRawScore,
	"optScore":    FormatOptionalScore,
	"weightPct":   FormatWeightPercent,
	"points":      FormatPoints,
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
	"scoreColor": func(normalized float64) template.CSS {
		return template.CSS(ScoreColor(normalized))
	},
	"barWidth": func(normalized float64) template.CSS {
		pct := math.Max(0, math.Min(100, normalized*100))
		return template.CSS(fmt.Sprintf("%.0f%%", pct))
	},
	"overallColor": func(score float64) template.CSS {
		return template.CSS(ScoreColor(score / 100))
	},
	"gradeClass": func(grade string) string {
		switch grade {
		case "A":
			return "grade-a"
		case "B":
			return "grade-b"
		case "C":
			return "grade-c"
		case "D":
			return "grade-d"
		default:
			return "grade-f"
		}
	},
	"gradeDescription": domain.GradeDescription,
	"statusClass": func(status domain.DifferenceStatus) string {
		switch status {
		case domain.DifferenceBoth:
			return "diff-both"
		case domain.DifferenceReferenceOnly:
			return "diff-missed"
		case domain.DifferenceCandidateOnly:
			return "diff-extra"
		default:
			return "diff-note"
		}
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(htmlFuncMap).Parse(htmlTemplate))

// WriteHTML writes the report through the styled HTML template
func (f *OutputFormatterImpl) WriteHTML(model *domain.ReportModel, writer io.Writer) error {
	data := HTMLData{
		Title:       constants.ReportTitle,
		GeneratedAt: FormatTimestamp(model),
		Version:     version.GetVersion(),
		Report:      model,
	}
	return reportTemplate.Execute(writer, data)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - {{.Report.Repository}}{{if .Report.PRNumber}} #{{.Report.PRNumber}}{{end}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
        }
        .container {
            max-width: 1100px;
            margin: 0 auto;
            padding: 20px;
        }
        .card {
            background: white;
            border-radius: 10px;
            padding: 30px;
            margin-bottom: 20px;
            box-shadow: 0 10px 30px rgba(0,0,0,0.1);
        }
        .header h1 {
            color: #667eea;
            margin-bottom: 10px;
        }
        .header .subtitle {
            color: #666;
            font-size: 14px;
        }
        .header a { color: #667eea; }
        h2 {
            color: #444;
            margin-bottom: 16px;
        }
        .overall {
            display: flex;
            align-items: center;
            gap: 24px;
        }
        .overall-value {
            font-size: 48px;
            font-weight: bold;
        }
        .overall-value small {
            font-size: 20px;
            color: #999;
        }
        .score-badge {
            display: inline-block;
            padding: 10px 20px;
            border-radius: 50px;
            font-size: 24px;
            font-weight: bold;
        }
        .grade-a { background: #4caf50; color: white; }
        .grade-b { background: #8bc34a; color: white; }
        .grade-c { background: #ff9800; color: white; }
        .grade-d { background: #ff5722; color: white; }
        .grade-f { background: #f44336; color: white; }
        .judge-note {
            color: #888;
            font-size: 13px;
            margin-top: 8px;
        }

        .metric {
            border-bottom: 1px solid #eee;
            padding: 16px 0;
        }
        .metric:last-child { border-bottom: none; }
        .metric-header {
            display: flex;
            justify-content: space-between;
            font-size: 15px;
            margin-bottom: 6px;
        }
        .metric-name { font-weight: 600; }
        .metric-score { font-weight: 700; }
        .metric-weight { color: #888; font-weight: normal; margin-left: 8px; }
        .bar {
            width: 100%;
            height: 10px;
            background: #eee;
            border-radius: 5px;
            overflow: hidden;
        }
        .bar-fill { height: 100%; border-radius: 5px; }
        .metric-description { color: #777; font-size: 13px; margin-top: 4px; }
        .metric-details {
            margin-top: 10px;
            font-size: 14px;
        }
        .metric-details dt { font-weight: 600; color: #555; }
        .metric-details dd { margin: 0 0 6px 0; }

        .lists {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
            gap: 20px;
        }
        .lists ul { padding-left: 20px; }
        .empty { color: #999; font-style: italic; }
        .strengths h2 { color: #2ecc71; }
        .weaknesses h2 { color: #e74c3c; }
        .suggestions h2 { color: #3498db; }

        .table {
            width: 100%;
            border-collapse: collapse;
        }
        .table th, .table td {
            padding: 10px;
            text-align: left;
            border-bottom: 1px solid #ddd;
        }
        .table th {
            background: #f8f9fa;
            font-weight: 600;
        }
        .diff-both { color: #2ecc71; }
        .diff-missed { color: #e74c3c; }
        .diff-extra { color: #f39c12; }
        .diff-note { color: #666; }

        .footer {
            text-align: center;
            color: white;
            font-size: 13px;
            padding: 10px;
        }
    </style>
</head>
<body>
<div class="container">
    <div class="card header">
        <h1>{{.Title}}</h1>
        <div class="subtitle">
            Repository: <strong>{{.Report.Repository}}</strong>
            {{- if .Report.PRNumber}} &middot; Pull Request:
                {{- if .Report.PRURL}} <a href="{{.Report.PRURL}}">#{{.Report.PRNumber}}</a>{{else}} #{{.Report.PRNumber}}{{end}}
            {{- end}}
            <br>Generated {{.GeneratedAt}} &middot; Run {{.Report.RunID}}
        </div>
    </div>

    <div class="card">
        <h2>Overall Score</h2>
        <div class="overall">
            <div class="overall-value" style="color: {{overallColor .Report.OverallScore}}">{{overall .Report.OverallScore}}<small> / 100</small></div>
            <div class="score-badge {{gradeClass .Report.Grade}}">{{.Report.Grade}}</div>
            <div>{{gradeDescription .Report.Grade}}</div>
        </div>
        {{- if .Report.JudgeOverall}}
        <div class="judge-note">Judge's own overall score: {{rawScore (deref .Report.JudgeOverall)}}</div>
        {{- end}}
    </div>

    <div class="card">
        <h2>Metrics</h2>
        {{- range .Report.Metrics}}
        <div class="metric">
            <div class="metric-header">
                <span class="metric-name">{{.Title}}<span class="metric-weight">weight {{weightPct .Weight}} &middot; {{points .WeightedContribution}} pts</span></span>
                <span class="metric-score" style="color: {{scoreColor .Normalized}}">{{metricScore .}}</span>
            </div>
            <div class="bar"><div class="bar-fill" style="width: {{barWidth .Normalized}}; background: {{scoreColor .Normalized}}"></div></div>
            {{- if .Description}}
            <div class="metric-description">{{.Description}}</div>
            {{- end}}
            {{- if .HasNarrative}}
            <dl class="metric-details">
                {{- if .Explanation}}<dt>Explanation</dt><dd>{{.Explanation}}</dd>{{end}}
                {{- if .Strength}}<dt>Strength</dt><dd>{{.Strength}}</dd>{{end}}
                {{- if .Weakness}}<dt>Weakness</dt><dd>{{.Weakness}}</dd>{{end}}
                {{- if .Comparison}}<dt>Comparison</dt><dd>{{.Comparison}}</dd>{{end}}
            </dl>
            {{- end}}
        </div>
        {{- end}}
    </div>

    {{- if .Report.AdditionalMetrics}}
    <div class="card">
        <h2>Additional Metrics</h2>
        <p class="empty">Reported by the judge but not part of the overall score.</p>
        <table class="table">
            <tr><th>Metric</th><th>Score</th><th>Explanation</th></tr>
            {{- range .Report.AdditionalMetrics}}
            <tr><td>{{.Name}}</td><td>{{optScore .Score}}</td><td>{{.Explanation}}</td></tr>
            {{- end}}
        </table>
    </div>
    {{- end}}

    <div class="lists">
        <div class="card strengths">
            <h2>Strengths</h2>
            {{- if .Report.Strengths}}
            <ul>{{range .Report.Strengths}}<li>{{.}}</li>{{end}}</ul>
            {{- else}}
            <p class="empty">No significant strengths identified.</p>
            {{- end}}
        </div>
        <div class="card weaknesses">
            <h2>Weaknesses</h2>
            {{- if .Report.Weaknesses}}
            <ul>{{range .Report.Weaknesses}}<li>{{.}}</li>{{end}}</ul>
            {{- else}}
            <p class="empty">No significant weaknesses identified.</p>
            {{- end}}
        </div>
        <div class="card suggestions">
            <h2>Suggestions</h2>
            {{- if .Report.Suggestions}}
            <ul>{{range .Report.Suggestions}}<li>{{.}}</li>{{end}}</ul>
            {{- else}}
            <p class="empty">No suggestions provided.</p>
            {{- end}}
        </div>
    </div>

    {{- if .Report.Differences}}
    <div class="card">
        <h2>Implementation Differences</h2>
        <table class="table">
            <tr><th>File</th><th>Status</th><th>Note</th></tr>
            {{- range .Report.Differences}}
            <tr>
                <td>{{.File}}</td>
                <td class="{{statusClass .Status}}">{{.Status.Label}}</td>
                <td>{{.Note}}{{if or .Additions .Deletions}} (+{{.Additions}}/-{{.Deletions}}){{end}}</td>
            </tr>
            {{- end}}
        </table>
    </div>
    {{- end}}

    <div class="footer">fixeval {{.Version}}</div>
</div>
</body>
</html>
`

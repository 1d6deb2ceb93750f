package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Pod Sizing Report - {{.Window}}</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #326ce5 0%, #1a4d8f 100%);
            color: white;
            padding: 50px 40px;
            position: relative;
            overflow: hidden;
        }
        .header::before {
            content: '';
            position: absolute;
            top: -50%;
            right: -10%;
            width: 500px;
            height: 500px;
            background: rgba(255, 255, 255, 0.1);
            border-radius: 50%;
        }
        .header h1 {
            font-size: 2.8em;
            margin-bottom: 15px;
            position: relative;
            z-index: 1;
        }
        .header .meta {
            opacity: 0.95;
            font-size: 1.1em;
            position: relative;
            z-index: 1;
        }
        .header .meta strong {
            color: #fff;
        }
        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
            gap: 25px;
            padding: 40px;
            background: linear-gradient(to bottom, #f8f9fa 0%, #fff 100%);
        }
        .summary-card {
            background: white;
            padding: 30px;
            border-radius: 12px;
            border: 2px solid #e8eaed;
            box-shadow: 0 4px 12px rgba(0, 0, 0, 0.05);
            transition: transform 0.2s, box-shadow 0.2s;
        }
        .summary-card:hover {
            transform: translateY(-5px);
            box-shadow: 0 8px 20px rgba(0, 0, 0, 0.1);
        }
        .summary-card h3 {
            color: #5f6368;
            font-size: 0.85em;
            text-transform: uppercase;
            letter-spacing: 1.5px;
            margin-bottom: 15px;
            font-weight: 600;
        }
        .summary-card .value {
            font-size: 3em;
            font-weight: 700;
            color: #202124;
            line-height: 1;
        }
        .section {
            padding: 50px 40px;
        }
        .section:nth-child(even) {
            background: #fafbfc;
        }
        .section h2 {
            font-size: 2em;
            margin-bottom: 30px;
            color: #202124;
            display: flex;
            align-items: center;
            gap: 15px;
        }
        .section h2::before {
            content: '';
            width: 5px;
            height: 40px;
            background: #326ce5;
            border-radius: 3px;
        }
        .recommendations-table {
            width: 100%;
            border-collapse: separate;
            border-spacing: 0;
            margin-top: 25px;
            background: white;
            border-radius: 8px;
            overflow: hidden;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.05);
        }
        .recommendations-table th {
            background: #326ce5;
            color: white;
            padding: 18px 15px;
            text-align: left;
            font-weight: 600;
            font-size: 0.95em;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        .recommendations-table td {
            padding: 18px 15px;
            border-bottom: 1px solid #f0f2f4;
        }
        .recommendations-table tbody tr {
            transition: background-color 0.2s;
        }
        .recommendations-table tbody tr:hover {
            background: #f8f9fa;
        }
        .recommendations-table tbody tr:last-child td {
            border-bottom: none;
        }
        .status-badge {
            padding: 6px 12px;
            border-radius: 6px;
            font-size: 0.75em;
            font-weight: 700;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            display: inline-block;
            white-space: nowrap;
        }
        .status-over-provisioned {
            background: #fef7e0;
            color: #f9ab00;
        }
        .status-under-provisioned {
            background: #fce8e6;
            color: #d93025;
        }
        .status-balanced {
            background: #e6f4ea;
            color: #1e8e3e;
        }
        .status-unknown {
            background: #f1f3f4;
            color: #5f6368;
        }
        .summary-card.waste {
            border-left: 6px solid #34a853;
        }
        .summary-card.waste .value {
            color: #34a853;
        }
        .summary-card.workloads {
            border-left: 6px solid #326ce5;
        }
        .summary-card.workloads .value {
            color: #326ce5;
        }
        .summary-card.opportunities {
            border-left: 6px solid #fbbc04;
        }
        .summary-card.opportunities .value {
            color: #fbbc04;
        }
        .toggle {
            border: 1px solid #d7dfeb;
            background: #eef4ff;
            color: #08346f;
            padding: 8px 14px;
            border-radius: 8px;
            cursor: pointer;
            font-weight: 600;
        }
        .table-wrap {
            overflow: auto;
        }
        .footer {
            background: #202124;
            color: #9aa0a6;
            padding: 40px;
            text-align: center;
        }
        .footer strong {
            color: #fff;
        }
        .footer a {
            color: #8ab4f8;
            text-decoration: none;
            transition: color 0.2s;
        }
        .footer a:hover {
            color: #aecbfa;
        }
        .k8s-logo {
            font-size: 2em;
            margin-right: 10px;
        }
    </style>
</head>
<body>
    <div class="container">
        <!-- Header -->
        <div class="header">
            <h1><span class="k8s-logo">⎈</span>CPU, Memory and Pod Sizing Report</h1>
            <div class="meta">
                <p><strong>Namespaces:</strong> {{join .Namespaces ", "}}{{if .Tags}} | <strong>Tags:</strong> {{join .Tags ", "}}{{end}}</p>
                <p><strong>Time window:</strong> {{.Window}} | <strong>Percentile:</strong> p{{.Percentile}} | <strong>CPU headroom:</strong> {{.CPUHeadroom}} | <strong>Memory headroom:</strong> {{.MemoryHeadroom}}</p>
                <p><strong>Data from (UTC):</strong> {{.WindowStart.Format "January 2, 2006 15:04 MST"}} | <strong>Generated (UTC):</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}} | <strong>Run:</strong> {{.RunID}}</p>
            </div>
        </div>

        <!-- Executive Summary -->
        <div class="summary">
            <div class="summary-card workloads">
                <h3>Workloads Analyzed</h3>
                <div class="value">{{.WorkloadCount}}</div>
            </div>
            <div class="summary-card opportunities">
                <h3>Low Utilization</h3>
                <div class="value">{{.LowUtilizationCount}}</div>
            </div>
            <div class="summary-card waste">
                <h3>Reclaimable CPU / Memory</h3>
                <div class="value">{{cpu .TotalCPUWaste}} / {{mem .TotalMemoryWaste}}</div>
            </div>
        </div>

        <!-- Namespace Summary -->
        <div class="section">
            <h2>Namespace Summary (Ranked by Waste)</h2>
            <div class="table-wrap">
            <table class="recommendations-table">
                <thead>
                    <tr>
                        <th>Namespace</th>
                        <th>Workloads</th>
                        <th>Over-Provisioned</th>
                        <th>Under-Provisioned</th>
                        <th>CPU Waste</th>
                        <th>Memory Waste</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Summaries}}
                    <tr>
                        <td><strong>{{.Namespace}}</strong></td>
                        <td>{{.WorkloadCount}}</td>
                        <td>{{.OverProvisionedCount}}</td>
                        <td>{{.UnderProvisionedCount}}</td>
                        <td>{{cpu .TotalCPUWaste}}</td>
                        <td>{{mem .TotalMemoryWaste}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            </div>
        </div>

        <!-- Recommendations Table -->
        <div class="section">
            <h2>Workload Recommendations</h2>
            <button id="toggle-low" class="toggle" type="button">Toggle Low-Utilization Only</button>
            <div class="table-wrap">
            <table id="details" class="recommendations-table">
                <thead>
                    <tr>
                        <th>Workload</th>
                        <th>Kind</th>
                        <th>CPU p{{.Percentile}}</th>
                        <th>CPU Req</th>
                        <th>CPU Reco</th>
                        <th>CPU Status</th>
                        <th>Mem p{{.Percentile}}</th>
                        <th>Mem Req</th>
                        <th>Mem Reco</th>
                        <th>Mem Status</th>
                        <th>Replicas</th>
                        <th>Action</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Recommendations}}
                    <tr data-low-utilization="{{.LowUtilization}}">
                        <td><strong>{{.Namespace}}/{{.Workload}}</strong></td>
                        <td>{{.Kind}}{{if ne .CPUPattern "unknown"}}<br><small>{{.CPUPattern}}</small>{{end}}</td>
                        <td>{{cpu .PCPUUsage}}</td>
                        <td>{{cpu .CurrentCPURequest}}</td>
                        <td>{{cpu .RecommendedCPURequest}}</td>
                        <td><span class="status-badge status-{{.CPUStatus}}">{{.CPUStatus}}</span></td>
                        <td>{{mem .PMemoryUsage}}</td>
                        <td>{{mem .CurrentMemoryRequest}}</td>
                        <td>{{mem .RecommendedMemoryRequest}}</td>
                        <td><span class="status-badge status-{{.MemoryStatus}}">{{.MemoryStatus}}</span></td>
                        <td>{{.CurrentReplicas}} &rarr; {{.RecommendedReplicas}}</td>
                        <td>{{.ReplicaAction}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
            </div>
        </div>

        <!-- Footer -->
        <div class="footer">
            <p>Generated by <strong>pod-opt</strong> from Dynatrace metrics</p>
        </div>
    </div>
    <script>
    (function () {
        var onlyLow = {{.LowUtilizationOnly}};
        var table = document.getElementById('details');
        var apply = function () {
            table.querySelectorAll('tbody tr').forEach(function (row) {
                var isLow = row.getAttribute('data-low-utilization') === 'true';
                row.style.display = onlyLow && !isLow ? 'none' : '';
            });
        };
        document.getElementById('toggle-low').addEventListener('click', function () {
            onlyLow = !onlyLow;
            apply();
        });
        apply();
    })();
    </script>
</body>
</html>
`

// htmlView adds template-only fields to a report
type htmlView struct {
	*Report
	LowUtilizationOnly bool
}

// GenerateHTML creates an HTML report. Every row is rendered; the filter
// only decides whether the low-utilization toggle starts enabled.
func GenerateHTML(report *Report, writer io.Writer) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"cpu":  formatCPU,
		"mem":  formatMemory,
		"join": strings.Join,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	view := htmlView{Report: report, LowUtilizationOnly: report.Filter == FilterLowUtilization}
	if err := tmpl.Execute(writer, view); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

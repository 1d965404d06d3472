package view

import (
	"bytes"
	"html/template"
)

// DeniedPageData provides the dynamic fields for the access-denied template.
type DeniedPageData struct {
	Title  string
	Reason string
	Email  string
}

var deniedPageTmpl = template.Must(template.New("denied_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{if .Title}}{{.Title}}{{else}}Access denied{{end}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--warn: #f87171;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(460px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
		}
		h1 {
			font-size: 1.5rem;
			margin-bottom: 6px;
			color: var(--warn);
		}
		p {
			color: var(--muted);
			margin-top: 0;
		}
		.reason {
			margin: 24px 0 0;
			padding: 18px;
			border-radius: 14px;
			background: rgba(248, 113, 113, 0.07);
			border: 1px solid rgba(248, 113, 113, 0.25);
		}
	</style>
</head>
<body>
	<div class="card">
		<h1>Access denied</h1>
		<p>Your visitor pass cannot be used right now.</p>
		<div class="reason">{{if .Reason}}{{.Reason}}{{else}}The pass is no longer valid.{{end}}</div>
		{{if .Email}}<p style="margin-top:16px">Contact the person who invited {{.Email}} for a new pass.</p>{{end}}
	</div>
</body>
</html>
`))

// RenderDeniedPage expands the denial template with the provided data.
func RenderDeniedPage(data DeniedPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Access denied"
	}
	var buf bytes.Buffer
	if err := deniedPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

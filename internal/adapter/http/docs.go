package http

import (
	"html/template"
	"log"
	"net/http"

	"github.com/cwygoda/ytclip/internal/adapter/processor"
)

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>YouTube Downloader API</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; line-height: 1.5; }
pre { background: #f4f4f4; padding: .75rem; overflow-x: auto; }
.ok { color: #157f1f; } .fail { color: #b00020; }
td, th { padding: .2rem .6rem; text-align: left; }
</style>
</head>
<body>
<h1>YouTube Downloader API</h1>
<p>Downloads a YouTube video and optionally cuts a segment out of it.</p>

<h2>Status</h2>
<table>
<tr><th>Component</th><th>Path</th><th>Status</th></tr>
{{- range .Report.Tools}}
<tr><td>{{.Name}}</td><td><code>{{.Path}}</code></td>
{{- if .OK}}<td class="ok">OK ({{.Version}})</td>
{{- else if .Missing}}<td class="fail">Not found. <a href="{{.InstallURL}}">Installation instructions</a></td>
{{- else}}<td class="fail">Error: {{.Detail}}</td>{{end}}</tr>
{{- end}}
{{- range .Report.Dirs}}
<tr><td>{{.Label}} directory</td><td><code>{{.Path}}</code></td>
{{- if .Writable}}<td class="ok">Writable</td>{{else}}<td class="fail">Not writable</td>{{end}}</tr>
{{- end}}
</table>

<h2>Usage</h2>
<p>Send a <code>POST</code> request to <code>{{.Endpoint}}</code> with a JSON body:</p>
<pre>{
  "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
  "name": "optional_custom_name",
  "start_time": 30,
  "end_time": 45.5
}</pre>
<ul>
<li><code>url</code> (required): YouTube watch, short, embed or youtu.be URL.</li>
<li><code>name</code> (optional): output file name, sanitized.</li>
<li><code>start_time</code>, <code>end_time</code> (optional): segment bounds in seconds. Omit both for the full video.</li>
</ul>

<h3>Success (200)</h3>
<pre>{"url": "{{.Endpoint}}{{.Folder}}/optional_custom_name_segment_30p0_45p5.mp4", "filename": "optional_custom_name_segment_30p0_45p5.mp4"}</pre>
<h3>Failure (400 / 500)</h3>
<pre>{"error": "Description of the problem"}</pre>

<h3>Example</h3>
<pre>curl -X POST -H "Content-Type: application/json" \
  -d '{"url": "https://youtu.be/dQw4w9WgXcQ", "start_time": 10, "end_time": 20}' \
  {{.Endpoint}}</pre>

<p>Downloads may take several minutes; each request is limited to {{.MaxExecution}}.
Segments are cut with stream copy, so cut points snap to keyframes.</p>
</body>
</html>
`))

type docsPage struct {
	Report       processor.Report
	Endpoint     string
	Folder       string
	MaxExecution string
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	page := docsPage{
		Endpoint:     s.baseURL(r) + "/",
		Folder:       s.opts.OutputFolder,
		MaxExecution: s.opts.MaxExecutionTime.String(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if s.status != nil {
		page.Report = s.status.Check(r.Context())
	}
	if err := docsTemplate.Execute(w, page); err != nil {
		log.Printf("render docs: %v", err)
	}
}

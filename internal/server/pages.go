package server

import (
	"html/template"
	"net/http"
)

type page struct {
	Title   string
	Message string
}

var (
	notFoundPage = page{
		Title:   "Report not found",
		Message: "This download link is not valid. Please use the link from your most recent assessment email.",
	}
	expiredPage = page{
		Title:   "Download link expired",
		Message: "This download link has expired. Please contact us to receive a new copy of your report.",
	}
	unavailablePage = page{
		Title:   "Report unavailable",
		Message: "Your report cannot be retrieved right now. Please try again later.",
	}
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>body{font-family:sans-serif;max-width:40rem;margin:4rem auto;color:#1f2933}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

func writePage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, p)
}

// Package web holds the embedded page templates and static assets.
package web

import "embed"

// TemplatesFS holds the page templates and the partials they share.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet.
//
//go:embed static/*
var StaticFS embed.FS

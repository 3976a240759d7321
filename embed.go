package docchatui

import "embed"

// TemplateFS contains the embedded HTML templates of the chat page, split into layout, pages and the
// partials that are also pushed to the browser as server-sent events.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the script and stylesheet served under /static/.
//
//go:embed static/*
var StaticFS embed.FS

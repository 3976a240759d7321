package docchatui_test

import (
	"io/fs"
	"strings"
	"testing"

	docchatui "github.com/MegaGrindStone/docchat-web-ui"
)

func TestStaticAssets(t *testing.T) {
	for _, name := range []string{"static/app.js", "static/style.css"} {
		if _, err := fs.Stat(docchatui.StaticFS, name); err != nil {
			t.Errorf("Stat(%q) error = %v", name, err)
		}
	}
}

func TestScriptReenablesInputOnFailedSend(t *testing.T) {
	b, err := fs.ReadFile(docchatui.StaticFS, "static/app.js")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	script := string(b)

	// A rejected fetch must not leave the question form disabled.
	for _, want := range []string{"try {", "catch (err)", "setBusy(false)"} {
		if !strings.Contains(script, want) {
			t.Errorf("app.js does not contain %q", want)
		}
	}
}

func TestTemplates(t *testing.T) {
	for _, name := range []string{
		"templates/layout/base.html",
		"templates/pages/home.html",
		"templates/partials/message.html",
		"templates/partials/chat_list.html",
		"templates/partials/url_list.html",
	} {
		if _, err := fs.Stat(docchatui.TemplateFS, name); err != nil {
			t.Errorf("Stat(%q) error = %v", name, err)
		}
	}
}

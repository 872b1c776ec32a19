package pageHandler

import (
	"net/url"

	"github.com/gofiber/template/html/v2"
)

// NewViewEngine loads the page templates from dir. reload re-parses them on every render.
func NewViewEngine(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")
	engine.Reload(reload)
	engine.AddFunc("pathEscape", url.PathEscape)
	return engine
}

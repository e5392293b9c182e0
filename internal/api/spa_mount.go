package api

import (
	"embed"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Embedded status page assets.
//
// dist/browser/ holds the static status page served at /. A richer UI
// build can replace these files before compiling Go; the embed picks up
// whatever is there.
//
//go:embed dist/browser/*
var embeddedUI embed.FS

func getEmbedFs() static.ServeFileSystem {
	fs := static.EmbedFolder(embeddedUI, "dist/browser")
	if fs == nil {
		panic("failed to get embedded UI filesystem")
	}
	return fs
}

// MountStatusPage serves the embedded status page at / and falls back
// to index.html for unknown non-API paths.
func MountStatusPage(r *gin.Engine, logger *slog.Logger) {
	distFS := getEmbedFs()
	r.Use(static.Serve("/", distFS))

	r.NoRoute(func(c *gin.Context) {
		// Only serve index.html for non-API routes
		if !strings.HasPrefix(c.Request.RequestURI, "/api") {
			index, err := distFS.Open("index.html")
			if err != nil {
				if logger != nil {
					logger.Error("failed to open index.html", "error", err)
				}
				c.Status(http.StatusNotFound)
				return
			}
			defer index.Close()
			stat, _ := index.Stat()
			http.ServeContent(c.Writer, c.Request, "index.html", stat.ModTime(), index)
		}
	})
}

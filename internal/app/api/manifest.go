package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kotche/notes/internal/delivery"
)

type (
	manifestIcon struct {
		Src     string `json:"src"`
		Sizes   string `json:"sizes"`
		Type    string `json:"type"`
		Purpose string `json:"purpose"`
	}

	manifest struct {
		Name            string         `json:"name"`
		ShortName       string         `json:"short_name"`
		Description     string         `json:"description,omitempty"`
		StartURL        string         `json:"start_url"`
		Display         string         `json:"display"`
		ThemeColor      string         `json:"theme_color"`
		BackgroundColor string         `json:"background_color"`
		Icons           []manifestIcon `json:"icons"`
	}
)

// getManifest serves the installed-app manifest. Standalone display is what
// lets iOS deliver push to the app.
func (a *API) getManifest(c *gin.Context) {
	c.Header("Content-Type", "application/manifest+json")
	c.JSON(http.StatusOK, manifest{
		Name:            a.manifest.Name,
		ShortName:       a.manifest.ShortName,
		Description:     a.manifest.Description,
		StartURL:        delivery.DefaultURL,
		Display:         "standalone",
		ThemeColor:      a.manifest.ThemeColor,
		BackgroundColor: a.manifest.BackgroundColor,
		Icons: []manifestIcon{{
			Src:     delivery.DefaultIcon,
			Sizes:   "512x512",
			Type:    "image/png",
			Purpose: "any maskable",
		}},
	})
}

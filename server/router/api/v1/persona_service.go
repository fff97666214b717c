package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
)

// GetPersonas returns the stored pair. Unset slots are omitted.
// GET /api/v1/personas
func (s *APIV1Service) GetPersonas(c echo.Context) error {
	rc := requestContext(c, "")
	pair, err := s.Store.GetPersonas(c.Request().Context())
	if err != nil {
		return writeError(c, rc, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// RegeneratePersonas replaces both personas and clears every thread.
// POST /api/v1/personas/regenerate
func (s *APIV1Service) RegeneratePersonas(c echo.Context) error {
	rc := requestContext(c, "")
	req := &credentialRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, rc, bindError(err))
	}

	pair, err := s.Session.Regenerate(c.Request().Context(), req.credentials())
	if err != nil {
		return writeError(c, rc, err)
	}
	rc.Info("personas regenerated")
	return c.JSON(http.StatusOK, pair)
}

// Reveal renders both persona records as an HTML page.
// GET /api/v1/reveal
func (s *APIV1Service) Reveal(c echo.Context) error {
	rc := requestContext(c, "")
	pair, err := s.Store.GetPersonas(c.Request().Context())
	if err != nil {
		return writeError(c, rc, err)
	}
	if c.QueryParam("format") == "markdown" {
		return c.Blob(http.StatusOK, "text/markdown; charset=UTF-8", []byte(roleplay.RevealMarkdown(pair)))
	}
	html, err := roleplay.RevealHTML(pair)
	if err != nil {
		return writeError(c, rc, err)
	}
	return c.HTMLBlob(http.StatusOK, html)
}

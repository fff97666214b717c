package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/store"
)

// GetConfig reports which completion defaults the server holds, never their values.
// GET /api/v1/config
func (s *APIV1Service) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Session.Defaults().Probe())
}

// GetAPISettings returns the saved completion settings with the key masked.
// GET /api/v1/settings/api
func (s *APIV1Service) GetAPISettings(c echo.Context) error {
	rc := requestContext(c, "")
	config, err := s.Store.GetAPIConfig(c.Request().Context())
	if err != nil {
		return writeError(c, rc, err)
	}
	if config == nil {
		return c.JSON(http.StatusOK, &store.APIConfig{})
	}
	return c.JSON(http.StatusOK, &store.APIConfig{
		APIKey: maskAPIKey(config.APIKey),
		APIURL: config.APIURL,
		Model:  config.Model,
	})
}

// UpdateAPISettings saves the completion settings. Sending back the masked key keeps the stored one.
// PUT /api/v1/settings/api
func (s *APIV1Service) UpdateAPISettings(c echo.Context) error {
	rc := requestContext(c, "")
	ctx := c.Request().Context()

	req := &store.APIConfig{}
	if err := c.Bind(req); err != nil {
		return writeError(c, rc, bindError(err))
	}
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.APIURL = strings.TrimSpace(req.APIURL)
	req.Model = strings.TrimSpace(req.Model)

	existing, err := s.Store.GetAPIConfig(ctx)
	if err != nil {
		return writeError(c, rc, err)
	}
	if existing != nil && req.APIKey != "" && req.APIKey == maskAPIKey(existing.APIKey) {
		req.APIKey = existing.APIKey
	}
	if err := s.Store.UpsertAPIConfig(ctx, req); err != nil {
		return writeError(c, rc, err)
	}

	rc.Info("api settings saved")
	return c.JSON(http.StatusOK, &store.APIConfig{
		APIKey: maskAPIKey(req.APIKey),
		APIURL: req.APIURL,
		Model:  req.Model,
	})
}

// DeleteAPISettings forgets the saved completion settings.
// DELETE /api/v1/settings/api
func (s *APIV1Service) DeleteAPISettings(c echo.Context) error {
	rc := requestContext(c, "")
	if err := s.Store.DeleteAPIConfig(c.Request().Context()); err != nil {
		return writeError(c, rc, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// maskAPIKey keeps a short prefix and the last four runes. The sentinel is shown as is.
func maskAPIKey(key string) string {
	if key == "" || key == ai.Sentinel {
		return key
	}
	runes := []rune(key)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:3]) + "****" + string(runes[len(runes)-4:])
}

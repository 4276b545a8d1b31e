package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func handleFamilies(c echo.Context) error {
	cc := c.(*extendedContext)

	verbosity := c.QueryParam("verbosity")

	families := cc.registry.Families()
	for i := range families {
		families[i].Verbosity = verbosity
	}

	return c.JSONPretty(http.StatusOK, families, JSON_PRETTY_INDENT)
}

func handleFamily(c echo.Context) error {
	cc := c.(*extendedContext)

	name := c.Param("name")

	h, ok := cc.registry.FindByName(name)
	if !ok {
		return c.JSONPretty(http.StatusNotFound, &errorResponse{
			Error: "no family named " + name,
		}, JSON_PRETTY_INDENT)
	}

	fi := h.Family().Info()
	h.Release()

	fi.Verbosity = c.QueryParam("verbosity")

	return c.JSONPretty(http.StatusOK, fi, JSON_PRETTY_INDENT)
}

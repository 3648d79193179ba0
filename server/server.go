// Package server is the HTTP face of a peer.
//
// It serves local content at the conventional paths that other peers probe and fetch,
// and, when a ledger is configured, accepts notarization requests and answers ledger queries.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/dh"
	"github.com/bobg/dh/ledger"
)

// Server holds the state behind the HTTP handlers.
type Server struct {
	Store  dh.Store
	Ledger *ledger.Ledger // optional
	Logger log.FieldLogger
}

// New produces an echo instance serving s.
//
// Routes:
//
//	GET, HEAD /data/:hash/:name  content, where name is <hash>.<ext>
//	POST /notary                 form fields address and filehash; returns the new block
//	GET /blocks/:hash            a block
//	GET /owners/:filehash        the owner of a file hash
//	GET /                        liveness
func New(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.logRequests)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok\n")
	})
	e.GET("/data/:hash/:name", s.getData)
	e.HEAD("/data/:hash/:name", s.getData)

	if s.Ledger != nil {
		e.POST("/notary", s.notarize)
		e.GET("/blocks/:hash", s.getBlock)
		e.GET("/owners/:filehash", s.getOwner)
	}

	return e
}

func (s *Server) logger() log.FieldLogger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.StandardLogger()
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger().WithFields(log.Fields{
			"method":  req.Method,
			"path":    req.URL.Path,
			"status":  c.Response().Status,
			"elapsed": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
		return nil
	}
}

func (s *Server) getData(c echo.Context) error {
	id, err := dh.ParseID(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !strings.EqualFold(c.Param("hash"), id.Hash.String()) {
		return echo.NewHTTPError(http.StatusNotFound, "hash and name disagree")
	}

	data, err := s.Store.Get(c.Request().Context(), id)
	if errors.Is(err, dh.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		s.logger().WithField("id", id.String()).Error(err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) notarize(c echo.Context) error {
	var (
		address  = c.FormValue("address")
		filehash = c.FormValue("filehash")
	)
	b, err := s.Ledger.Submit(c.Request().Context(), address, filehash)
	if err != nil {
		return ledgerError(err)
	}
	s.logger().WithFields(log.Fields{"filehash": b.FileHash, "block": b.BlockHash}).Info("notarized")
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) getBlock(c echo.Context) error {
	b, err := s.Ledger.Block(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, b)
}

// OwnerResponse is the body of a successful GET /owners/:filehash.
type OwnerResponse struct {
	FileHash string `json:"filehash"`
	Address  string `json:"identity_address"`
}

func (s *Server) getOwner(c echo.Context) error {
	filehash := strings.ToLower(c.Param("filehash"))
	address, err := s.Ledger.Owner(c.Request().Context(), filehash)
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(http.StatusOK, OwnerResponse{FileHash: filehash, Address: address})
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, dh.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, dh.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, dh.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	log.Error(err)
	return echo.NewHTTPError(http.StatusInternalServerError)
}
